package yahoo

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// Bar is one candle close. Close is nil for sessions Yahoo has no print for.
type Bar struct {
	Time  time.Time
	Close *float64
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []Number `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *APIError `json:"error"`
	} `json:"chart"`
}

// GetChart retrieves bars for symbol between from and to at the given
// interval ("1d", "1wk", ...).
func (c *Client) GetChart(ctx context.Context, symbol string, from, to time.Time, interval string) ([]Bar, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.Unix(), 10))
	params.Set("interval", interval)
	params.Set("events", "history")

	var body chartResponse
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &body); err != nil {
		return nil, err
	}
	if body.Chart.Error != nil {
		return nil, body.Chart.Error
	}
	if len(body.Chart.Result) == 0 {
		return nil, ErrNoResult
	}

	result := body.Chart.Result[0]
	var closes []Number
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar := Bar{Time: time.Unix(ts, 0).UTC()}
		if i < len(closes) {
			bar.Close = closes[i].Ptr()
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
