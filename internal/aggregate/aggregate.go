package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"sync"

	"marketdash/internal/provider"
	"marketdash/internal/trace"
)

// Group holds quotes per asset class. It marshals with the classes in
// provider.AssetClasses order, followed by any other keys sorted by name.
type Group map[provider.AssetClass][]provider.Quote

func (g Group) MarshalJSON() ([]byte, error) {
	keys := make([]provider.AssetClass, 0, len(g))
	for _, class := range provider.AssetClasses {
		if _, ok := g[class]; ok {
			keys = append(keys, class)
		}
	}
	var extra []provider.AssetClass
	for class := range g {
		if !slices.Contains(provider.AssetClasses, class) {
			extra = append(extra, class)
		}
	}
	slices.Sort(extra)
	keys = append(keys, extra...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, class := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(class))
		if err != nil {
			return nil, err
		}
		quotes := g[class]
		if quotes == nil {
			quotes = []provider.Quote{}
		}
		v, err := json.Marshal(quotes)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Markets fetches every asset class concurrently and waits for all of them.
// Every class is present in the result, empty when its fetch produced nothing.
func (f *Fetcher) Markets(ctx context.Context) Group {
	ctx, span := trace.StartSpan(ctx, "aggregate.Markets")
	defer span.End()

	classes := provider.AssetClasses
	results := make([][]provider.Quote, len(classes))

	var wg sync.WaitGroup
	for i, class := range classes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.FetchAssetClass(ctx, class)
		}()
	}
	wg.Wait()

	group := make(Group, len(classes))
	for i, class := range classes {
		quotes := results[i]
		if quotes == nil {
			quotes = []provider.Quote{}
		}
		group[class] = quotes
	}
	return group
}
