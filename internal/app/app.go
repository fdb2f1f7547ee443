// Package app builds the services both binaries run from a loaded config.
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketdash/internal/aggregate"
	"marketdash/internal/aifilter"
	"marketdash/internal/config"
	"marketdash/internal/httpx"
	"marketdash/internal/provider/gemini"
	"marketdash/internal/provider/prediction"
	"marketdash/internal/provider/yahoo"
	"marketdash/internal/provider/yahooadapter"
)

// ErrFilterDisabled is returned by NewFilter when no Gemini API key is set.
var ErrFilterDisabled = errors.New("app: gemini api key not set")

// NewFetcher wires the Yahoo client, its adapter and the trending resolver.
func NewFetcher(cfg config.Config, logger *zap.Logger) (*aggregate.Fetcher, error) {
	historyStart, err := cfg.HistoryStart()
	if err != nil {
		return nil, err
	}
	client, err := yahoo.NewClient(
		yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
		yahoo.WithCookieURL(cfg.Yahoo.CookieURL),
		yahoo.WithHTTPClient(httpx.New(seconds(cfg.Yahoo.TimeoutSec), logger)),
	)
	if err != nil {
		return nil, err
	}
	adapter := yahooadapter.New(yahooadapter.Config{}, client, logger)
	resolver := aggregate.NewResolver(adapter, cfg.Yahoo.TrendingRegion, cfg.Yahoo.TrendingLimit, logger)
	return aggregate.NewFetcher(adapter, resolver, aggregate.Config{
		MaxConcurrency: cfg.Yahoo.MaxConcurrency,
		HistoryStart:   historyStart,
	}, logger), nil
}

func NewPredictor(cfg config.Config, logger *zap.Logger) *prediction.Client {
	return prediction.NewClient(httpx.New(seconds(cfg.Prediction.TimeoutSec), logger), cfg.Prediction.Host, logger)
}

// NewFilter returns ErrFilterDisabled when the config carries no API key.
func NewFilter(ctx context.Context, cfg config.Config, logger *zap.Logger) (*aifilter.Filter, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, ErrFilterDisabled
	}
	gen, err := gemini.NewClient(ctx, cfg.Gemini.APIKey,
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithJSONResponse(cfg.Gemini.JSONResponse),
		gemini.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return aifilter.New(gen, logger), nil
}

// Candidates returns the configured filter candidates, or the built-in set.
func Candidates(cfg config.Config) []aifilter.StockRecord {
	if len(cfg.Gemini.Candidates) == 0 {
		return aifilter.DefaultCandidates
	}
	out := make([]aifilter.StockRecord, 0, len(cfg.Gemini.Candidates))
	for _, c := range cfg.Gemini.Candidates {
		out = append(out, aifilter.StockRecord{Name: c.Name, Cap: c.Cap, Risk: c.Risk})
	}
	return out
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
