package aggregate

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"marketdash/internal/provider"
	"marketdash/internal/trace"
)

// StockComparison is a quote with its daily close history.
type StockComparison struct {
	Symbol        string                `json:"symbol"`
	Name          string                `json:"name"`
	Price         *float64              `json:"price"`
	Change        *float64              `json:"change"`
	ChangePercent *float64              `json:"changePercent"`
	Volume        *float64              `json:"volume"`
	ChartData     []provider.PricePoint `json:"chartData"`
}

// MarketSnapshot quotes the headline indices. Failed indices are dropped.
func (f *Fetcher) MarketSnapshot(ctx context.Context) []provider.Quote {
	ctx, span := trace.StartSpan(ctx, "aggregate.MarketSnapshot")
	defer span.End()

	return f.FetchSymbols(ctx, SnapshotSymbols(), "")
}

// CompareStock loads the quote and the daily closes since the configured
// history start. Either failing fails the whole call.
func (f *Fetcher) CompareStock(ctx context.Context, symbol string) (*StockComparison, error) {
	symbol = strings.TrimSpace(symbol)
	ctx, span := trace.StartSpan(ctx, "aggregate.CompareStock", attribute.String("symbol", symbol))
	defer span.End()

	var (
		quote   *provider.Quote
		history []provider.PricePoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quote, err = f.source.Quote(gctx, symbol, "")
		return err
	})
	g.Go(func() error {
		var err error
		history, err = f.source.History(gctx, symbol, f.cfg.HistoryStart, f.now())
		return err
	})
	if err := g.Wait(); err != nil {
		trace.Fail(span, err)
		return nil, fmt.Errorf("compare %s: %w", symbol, err)
	}

	if history == nil {
		history = []provider.PricePoint{}
	}
	return &StockComparison{
		Symbol:        quote.Symbol,
		Name:          quote.Name,
		Price:         quote.Price,
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
		Volume:        quote.Volume,
		ChartData:     history,
	}, nil
}
