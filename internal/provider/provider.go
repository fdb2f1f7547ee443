package provider

import (
	"context"
	"time"
)

// AssetClass partitions the symbol universe.
type AssetClass string

const (
	Stocks           AssetClass = "Stocks"
	Commodities      AssetClass = "Commodities"
	Currencies       AssetClass = "Currencies"
	Bonds            AssetClass = "Bonds"
	Cryptocurrencies AssetClass = "Cryptocurrencies"
)

// AssetClasses is the fixed response order for grouped market data.
var AssetClasses = []AssetClass{Stocks, Commodities, Currencies, Bonds, Cryptocurrencies}

// Quote is the normalized shape returned for every instrument.
// Numeric fields stay nil when the upstream omitted them so consumers
// see null rather than a made-up zero.
type Quote struct {
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	Price         *float64   `json:"price"`
	Change        *float64   `json:"change"`
	ChangePercent *float64   `json:"changePercent"`
	MarketCap     *float64   `json:"marketCap"`
	Volume        *float64   `json:"volume"`
	AssetClass    AssetClass `json:"assetClass,omitempty"`

	FiftyTwoWeekChangePercent *float64 `json:"fiftyTwoWeekChangePercent,omitempty"`
}

// PricePoint is one daily close.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// QuoteSource fetches one normalized quote. A nil quote means no quote is
// available for the symbol; the reason has already been logged.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string, class AssetClass) *Quote
}

// TrendingSource returns trending symbols for a market region in provider order.
type TrendingSource interface {
	Trending(ctx context.Context, region string, count int) ([]string, error)
}

// HistorySource returns daily closes between from and to.
type HistorySource interface {
	History(ctx context.Context, symbol string, from, to time.Time) ([]PricePoint, error)
}

// Provider is the full surface the aggregation layer needs from a market-data backend.
// Quote is the error-returning form of FetchQuote for callers that must report why.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string, class AssetClass) (*Quote, error)
	QuoteSource
	TrendingSource
	HistorySource
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Value dereferences p, treating nil as zero.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
