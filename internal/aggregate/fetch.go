package aggregate

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"marketdash/internal/provider"
	"marketdash/internal/trace"
)

// DefaultHistoryStart is the first day of the stock-compare chart.
var DefaultHistoryStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

type Config struct {
	// MaxConcurrency bounds in-flight quote calls per fan-out. 0 means unlimited.
	MaxConcurrency int
	HistoryStart   time.Time
}

// Fetcher fans quote calls out over a provider and joins the results.
type Fetcher struct {
	source   provider.Provider
	resolver *Resolver
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

func NewFetcher(source provider.Provider, resolver *Resolver, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.HistoryStart.IsZero() {
		cfg.HistoryStart = DefaultHistoryStart
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		source:   source,
		resolver: resolver,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With(zap.String("caller", "Fetcher")),
	}
}

// FetchAssetClass quotes every symbol of class concurrently and returns the
// survivors in symbol order. It never fails; a panic during the fan-out
// yields an empty result.
func (f *Fetcher) FetchAssetClass(ctx context.Context, class provider.AssetClass) (out []provider.Quote) {
	ctx, span := trace.StartSpan(ctx, "aggregate.FetchAssetClass", attribute.String("assetClass", string(class)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("asset class fetch panicked",
				zap.String("method", "FetchAssetClass"),
				zap.String("assetClass", string(class)),
				zap.Any("panic", r),
			)
			out = []provider.Quote{}
		}
	}()

	symbols := f.resolver.Resolve(ctx, class)
	out = f.FetchSymbols(ctx, symbols, class)
	span.SetAttributes(attribute.Int("symbols", len(symbols)), attribute.Int("quotes", len(out)))
	return out
}

// FetchSymbols quotes an explicit symbol list concurrently. Failed symbols
// are dropped; the rest keep their input order.
func (f *Fetcher) FetchSymbols(ctx context.Context, symbols []string, class provider.AssetClass) []provider.Quote {
	slots := make([]*provider.Quote, len(symbols))

	var g errgroup.Group
	if f.cfg.MaxConcurrency > 0 {
		g.SetLimit(f.cfg.MaxConcurrency)
	}
	for i, symbol := range symbols {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("quote fetch panicked",
						zap.String("method", "FetchSymbols"),
						zap.String("symbol", symbol),
						zap.Any("panic", r),
					)
					slots[i] = nil
				}
			}()
			slots[i] = f.source.FetchQuote(ctx, symbol, class)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]provider.Quote, 0, len(slots))
	for _, q := range slots {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out
}
