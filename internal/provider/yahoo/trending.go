package yahoo

import (
	"context"
	"net/url"
	"strconv"
)

type trendingResponse struct {
	Finance struct {
		Result []struct {
			Count  int `json:"count"`
			Quotes []struct {
				Symbol string `json:"symbol"`
			} `json:"quotes"`
		} `json:"result"`
		Error *APIError `json:"error"`
	} `json:"finance"`
}

// GetTrending retrieves trending symbols for a region ("US", "GB", ...) in the
// order Yahoo ranks them.
func (c *Client) GetTrending(ctx context.Context, region string, count int) ([]string, error) {
	params := url.Values{}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}

	var body trendingResponse
	if err := c.getJSON(ctx, "/v1/finance/trending/"+url.PathEscape(region), params, &body); err != nil {
		return nil, err
	}
	if body.Finance.Error != nil {
		return nil, body.Finance.Error
	}
	if len(body.Finance.Result) == 0 {
		return nil, ErrNoResult
	}

	quotes := body.Finance.Result[0].Quotes
	symbols := make([]string, 0, len(quotes))
	for _, q := range quotes {
		symbols = append(symbols, q.Symbol)
	}
	return symbols, nil
}
