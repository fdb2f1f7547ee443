package aifilter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const rawPreview = 512

// ParseResponse reads the model's text as a list of stock records. It
// accepts a bare JSON array, an object wrapping the array under "stocks"
// or "filteredStocks", markdown-fenced variants of both, and an array
// embedded in surrounding prose.
func ParseResponse(text string) ([]StockRecord, error) {
	t := stripFences(strings.TrimSpace(text))
	if t == "" {
		return nil, newParseError(text, errors.New("empty response"))
	}

	var firstErr error
	for _, candidate := range []string{t, arraySubstring(t)} {
		if candidate == "" {
			continue
		}
		stocks, err := decode(candidate)
		if err == nil {
			return stocks, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, newParseError(text, firstErr)
}

func decode(s string) ([]StockRecord, error) {
	var stocks []StockRecord
	switch {
	case strings.HasPrefix(s, "["):
		if err := json.Unmarshal([]byte(s), &stocks); err != nil {
			return nil, err
		}
	case strings.HasPrefix(s, "{"):
		var wrapped struct {
			Stocks         []StockRecord `json:"stocks"`
			FilteredStocks []StockRecord `json:"filteredStocks"`
		}
		if err := json.Unmarshal([]byte(s), &wrapped); err != nil {
			return nil, err
		}
		switch {
		case wrapped.FilteredStocks != nil:
			stocks = wrapped.FilteredStocks
		case wrapped.Stocks != nil:
			stocks = wrapped.Stocks
		default:
			return nil, errors.New("object carries no stock list")
		}
	default:
		return nil, errors.New("not a JSON array or object")
	}

	out := make([]StockRecord, 0, len(stocks))
	for i, s := range stocks {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("record %d has no name", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func stripFences(t string) string {
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	// drop the info string, e.g. ```json
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = strings.TrimLeftFunc(t, unicode.IsLetter)
	}
	if end := strings.LastIndex(t, "```"); end >= 0 {
		t = t[:end]
	}
	return strings.TrimSpace(t)
}

func arraySubstring(t string) string {
	start := strings.Index(t, "[")
	end := strings.LastIndex(t, "]")
	if start < 0 || end <= start {
		return ""
	}
	if start == 0 && end == len(t)-1 {
		return ""
	}
	return t[start : end+1]
}

func newParseError(raw string, err error) *ParseError {
	if len(raw) > rawPreview {
		cut := rawPreview
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	return &ParseError{Raw: raw, Err: err}
}
