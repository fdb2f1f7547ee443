package aggregate

import (
	"cmp"
	"context"
	"slices"

	"marketdash/internal/provider"
	"marketdash/internal/trace"
)

const categorySize = 5

// Category is one ranked list on the popular page.
type Category struct {
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Stocks      []provider.Quote `json:"stocks"`
}

type ranking struct {
	name        string
	description string
	rank        func([]provider.Quote) []provider.Quote
}

var rankings = []ranking{
	{
		name:        "Trending Now",
		description: "Stocks that are currently trending in the market.",
		rank:        func(q []provider.Quote) []provider.Quote { return q },
	},
	{
		name:        "Most Active Stocks",
		description: "Discover the most traded equities in the trading day.",
		rank: func(q []provider.Quote) []provider.Quote {
			return sortedBy(q, func(a, b provider.Quote) int {
				return cmp.Compare(provider.Value(b.Volume), provider.Value(a.Volume))
			})
		},
	},
	{
		name:        "Day Gainer Stocks",
		description: "Discover the equities with the greatest gains today.",
		rank: func(q []provider.Quote) []provider.Quote {
			return sortedBy(q, func(a, b provider.Quote) int {
				return cmp.Compare(provider.Value(b.ChangePercent), provider.Value(a.ChangePercent))
			})
		},
	},
	{
		name:        "Day Loser Stocks",
		description: "Discover the equities with the greatest losses today.",
		rank: func(q []provider.Quote) []provider.Quote {
			return sortedBy(q, func(a, b provider.Quote) int {
				return cmp.Compare(provider.Value(a.ChangePercent), provider.Value(b.ChangePercent))
			})
		},
	},
	{
		name:        "52-Week Gainers",
		description: "Stocks with the highest gains over the past year.",
		rank: func(q []provider.Quote) []provider.Quote {
			defined := make([]provider.Quote, 0, len(q))
			for _, quote := range q {
				if quote.FiftyTwoWeekChangePercent != nil {
					defined = append(defined, quote)
				}
			}
			slices.SortStableFunc(defined, func(a, b provider.Quote) int {
				return cmp.Compare(*b.FiftyTwoWeekChangePercent, *a.FiftyTwoWeekChangePercent)
			})
			return defined
		},
	},
}

// sortedBy returns a stably sorted copy of q.
func sortedBy(q []provider.Quote, compare func(a, b provider.Quote) int) []provider.Quote {
	out := slices.Clone(q)
	slices.SortStableFunc(out, compare)
	return out
}

// Categorize derives the five popular categories from quotes. Each ranking
// works on its own copy, so quotes is left untouched and no category depends
// on another's order.
func Categorize(quotes []provider.Quote) []Category {
	out := make([]Category, 0, len(rankings))
	for _, r := range rankings {
		ranked := r.rank(quotes)
		top := make([]provider.Quote, min(len(ranked), categorySize))
		copy(top, ranked)
		out = append(out, Category{
			Category:    r.name,
			Description: r.description,
			Stocks:      top,
		})
	}
	return out
}

// Popular ranks the trending stocks.
func (f *Fetcher) Popular(ctx context.Context) []Category {
	ctx, span := trace.StartSpan(ctx, "aggregate.Popular")
	defer span.End()

	return Categorize(f.FetchAssetClass(ctx, provider.Stocks))
}
