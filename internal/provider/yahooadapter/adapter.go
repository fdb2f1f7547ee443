package yahooadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketdash/internal/provider"
	"marketdash/internal/provider/yahoo"
)

const historyInterval = "1d"

// Client is the subset of the Yahoo client the adapter calls.
type Client interface {
	GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error)
	GetTrending(ctx context.Context, region string, count int) ([]string, error)
	GetChart(ctx context.Context, symbol string, from, to time.Time, interval string) ([]yahoo.Bar, error)
}

type Config struct {
	Name string // display name, default: Yahoo Finance
}

// Adapter turns raw Yahoo records into canonical quotes.
type Adapter struct {
	cfg    Config
	client Client
	logger *zap.Logger
}

var _ provider.Provider = (*Adapter)(nil)

func New(cfg Config, client Client, logger *zap.Logger) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Yahoo Finance"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("caller", "YahooAdapter")),
	}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Quote fetches and normalizes one quote, returning the upstream error if any.
func (a *Adapter) Quote(ctx context.Context, symbol string, class provider.AssetClass) (*provider.Quote, error) {
	raw, err := a.client.GetQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching quote %s: %w", symbol, err)
	}
	return normalize(raw, symbol, class), nil
}

// FetchQuote is Quote with failures logged and collapsed to nil.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string, class provider.AssetClass) *provider.Quote {
	q, err := a.Quote(ctx, symbol, class)
	if err != nil {
		a.logger.Warn("quote unavailable",
			zap.String("method", "FetchQuote"),
			zap.String("symbol", symbol),
			zap.String("assetClass", string(class)),
			zap.Error(err),
		)
		return nil
	}
	return q
}

func (a *Adapter) Trending(ctx context.Context, region string, count int) ([]string, error) {
	symbols, err := a.client.GetTrending(ctx, region, count)
	if err != nil {
		return nil, fmt.Errorf("fetching trending %s: %w", region, err)
	}
	return symbols, nil
}

// History returns daily closes; sessions without a close are skipped.
func (a *Adapter) History(ctx context.Context, symbol string, from, to time.Time) ([]provider.PricePoint, error) {
	bars, err := a.client.GetChart(ctx, symbol, from, to, historyInterval)
	if err != nil {
		return nil, fmt.Errorf("fetching history %s: %w", symbol, err)
	}
	points := make([]provider.PricePoint, 0, len(bars))
	for _, b := range bars {
		if b.Close == nil {
			continue
		}
		points = append(points, provider.PricePoint{
			Date:  b.Time.UTC().Format(time.DateOnly),
			Price: *b.Close,
		})
	}
	return points, nil
}

func normalize(raw *yahoo.Quote, requested string, class provider.AssetClass) *provider.Quote {
	symbol := strings.TrimSpace(raw.Symbol)
	if symbol == "" {
		symbol = requested
	}
	name := raw.ShortName
	if strings.TrimSpace(name) == "" {
		name = raw.LongName
	}

	fiftyTwoWeek := raw.FiftyTwoWeekChangePercent.Ptr()
	if fiftyTwoWeek == nil {
		fiftyTwoWeek = raw.FiftyTwoWeekLowChangePercent.Ptr()
	}

	return &provider.Quote{
		Symbol:                    symbol,
		Name:                      name,
		Price:                     raw.RegularMarketPrice.Ptr(),
		Change:                    raw.RegularMarketChange.Ptr(),
		ChangePercent:             raw.RegularMarketChangePercent.Ptr(),
		MarketCap:                 raw.MarketCap.Ptr(),
		Volume:                    raw.RegularMarketVolume.Ptr(),
		AssetClass:                class,
		FiftyTwoWeekChangePercent: fiftyTwoWeek,
	}
}
