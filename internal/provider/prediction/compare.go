package prediction

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Outcome is the result for one ticker of a comparison. Exactly one of
// Prediction and Error is set.
type Outcome struct {
	Ticker     string  `json:"ticker"`
	Prediction *Result `json:"prediction,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Compare requests predictions for every ticker concurrently and waits for
// all of them. Outcomes keep the request order; one ticker failing does not
// affect the others.
func (pc *Client) Compare(ctx context.Context, tickers ...string) []Outcome {
	out := make([]Outcome, len(tickers))

	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i].Ticker = strings.ToUpper(strings.TrimSpace(ticker))
			res, err := pc.FetchPrediction(ctx, ticker)
			if err != nil {
				pc.logger.Warn("prediction failed",
					zap.String("method", "Compare"),
					zap.String("ticker", ticker),
					zap.Error(err),
				)
				out[i].Error = err.Error()
				return
			}
			out[i].Prediction = res
		}()
	}
	wg.Wait()
	return out
}
