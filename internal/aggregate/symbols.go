package aggregate

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"marketdash/internal/provider"
)

const (
	DefaultTrendingRegion = "US"
	DefaultTrendingLimit  = 10
)

// curated holds the fixed symbol lists. Stocks are resolved from the trending lookup.
var curated = map[provider.AssetClass][]string{
	provider.Commodities:      {"CL=F", "GC=F", "SI=F", "HG=F", "NG=F", "BZ=F"},
	provider.Currencies:       {"EURUSD=X", "JPY=X", "GBPUSD=X", "AUDUSD=X", "CADUSD=X", "MXNUSD=X"},
	provider.Bonds:            {"^IRX", "^FVX", "^TNX", "^TYX", "ZT=F", "ZN=F"},
	provider.Cryptocurrencies: {"BTC-USD", "ETH-USD", "XRP-USD", "USDT-USD", "BNB-USD", "SOL-USD", "USDC-USD", "DOGE-USD"},
}

var snapshotSymbols = []string{"^NSEI", "^BSESN", "^GSPC", "^IXIC"}

// CuratedSymbols returns a copy of the fixed list for class, or nil for Stocks.
func CuratedSymbols(class provider.AssetClass) []string {
	return slices.Clone(curated[class])
}

// SnapshotSymbols returns a copy of the market snapshot indices.
func SnapshotSymbols() []string {
	return slices.Clone(snapshotSymbols)
}

// Resolver maps an asset class to the symbols to quote.
type Resolver struct {
	trending provider.TrendingSource
	region   string
	limit    int
	logger   *zap.Logger
}

func NewResolver(trending provider.TrendingSource, region string, limit int, logger *zap.Logger) *Resolver {
	if region == "" {
		region = DefaultTrendingRegion
	}
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		trending: trending,
		region:   region,
		limit:    limit,
		logger:   logger.With(zap.String("caller", "Resolver")),
	}
}

// Resolve returns the ordered symbols for class. A failed trending lookup
// yields an empty list.
func (r *Resolver) Resolve(ctx context.Context, class provider.AssetClass) []string {
	if class != provider.Stocks {
		return CuratedSymbols(class)
	}

	symbols, err := r.trending.Trending(ctx, r.region, r.limit)
	if err != nil {
		r.logger.Warn("trending lookup failed",
			zap.String("method", "Resolve"),
			zap.String("region", r.region),
			zap.Error(err),
		)
		return []string{}
	}

	out := make([]string, 0, min(len(symbols), r.limit))
	for _, s := range symbols {
		if len(out) == r.limit {
			break
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
