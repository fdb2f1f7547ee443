// Package aifilter narrows a candidate stock list with a generative model.
package aifilter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"marketdash/internal/trace"
)

var (
	ErrInvalidCriteria   = errors.New("aifilter: invalid filter criteria")
	ErrMalformedResponse = errors.New("aifilter: malformed model response")
)

// StockRecord is a candidate the model filters and what it returns.
type StockRecord struct {
	Name string `json:"name"`
	Cap  string `json:"cap"`
	Risk string `json:"risk"`
}

// DefaultCandidates is used when no candidate universe is configured.
var DefaultCandidates = []StockRecord{
	{Name: "AAPL", Cap: "Large", Risk: "Low"},
	{Name: "TSLA", Cap: "Large", Risk: "High"},
	{Name: "NVDA", Cap: "Mid", Risk: "Medium"},
}

var (
	marketCaps = []string{"Large", "Mid", "Small"}
	riskLevels = []string{"Low", "Medium", "High"}
)

// Criteria is the user's filter preference.
type Criteria struct {
	MarketCap string `json:"marketCap"`
	RiskLevel string `json:"riskLevel"`
}

// Normalize validates c and returns it with the canonical spelling of each value.
func (c Criteria) Normalize() (Criteria, error) {
	capValue, ok := canonical(c.MarketCap, marketCaps)
	if !ok {
		return Criteria{}, fmt.Errorf("%w: marketCap %q must be one of %s", ErrInvalidCriteria, c.MarketCap, strings.Join(marketCaps, ", "))
	}
	riskValue, ok := canonical(c.RiskLevel, riskLevels)
	if !ok {
		return Criteria{}, fmt.Errorf("%w: riskLevel %q must be one of %s", ErrInvalidCriteria, c.RiskLevel, strings.Join(riskLevels, ", "))
	}
	return Criteria{MarketCap: capValue, RiskLevel: riskValue}, nil
}

func canonical(v string, allowed []string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a, true
		}
	}
	return "", false
}

// ParseError is returned when the model text cannot be read as a stock list.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrMalformedResponse, e.Err)
	}
	return ErrMalformedResponse.Error()
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedResponse, e.Err}
	}
	return []error{ErrMalformedResponse}
}

// Generator produces text for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type Filter struct {
	gen    Generator
	logger *zap.Logger
}

func New(gen Generator, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{gen: gen, logger: logger.With(zap.String("caller", "AIFilter"))}
}

// FilterStocks asks the model which candidates match marketCap and riskLevel.
// The result is never nil on success.
func (f *Filter) FilterStocks(ctx context.Context, candidates []StockRecord, marketCap, riskLevel string) ([]StockRecord, error) {
	criteria, err := Criteria{MarketCap: marketCap, RiskLevel: riskLevel}.Normalize()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []StockRecord{}, nil
	}

	ctx, span := trace.StartSpan(ctx, "aifilter.FilterStocks",
		attribute.String("marketCap", criteria.MarketCap),
		attribute.String("riskLevel", criteria.RiskLevel),
		attribute.Int("candidates", len(candidates)),
	)
	defer span.End()

	logger := f.logger.With(zap.String("method", "FilterStocks"))

	prompt, err := BuildPrompt(candidates, criteria)
	if err != nil {
		trace.Fail(span, err)
		return nil, err
	}

	text, err := f.gen.GenerateContent(ctx, prompt)
	if err != nil {
		err = fmt.Errorf("generate: %w", err)
		trace.Fail(span, err)
		return nil, err
	}

	stocks, err := ParseResponse(text)
	if err != nil {
		logger.Warn("unusable model response", zap.Int("length", len(text)), zap.Error(err))
		trace.Fail(span, err)
		return nil, err
	}
	logger.Debug("filtered", zap.Int("candidates", len(candidates)), zap.Int("matched", len(stocks)))
	return stocks, nil
}

// BuildPrompt renders the filtering instruction with the candidates embedded as JSON.
func BuildPrompt(candidates []StockRecord, c Criteria) (string, error) {
	b, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("Filter the following stocks based on user preference:\n")
	fmt.Fprintf(&sb, "User wants %s cap stocks with %s risk.\n", c.MarketCap, c.RiskLevel)
	fmt.Fprintf(&sb, "Stocks: %s\n", b)
	sb.WriteString("Return only the matching stocks as a JSON array.")
	return sb.String(), nil
}
