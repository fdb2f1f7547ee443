package yahoo

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// Quote is one record from the v7 quote endpoint. Only the fields the
// dashboard consumes are decoded; any of them may be missing.
type Quote struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	QuoteType string `json:"quoteType"`
	Currency  string `json:"currency"`

	RegularMarketPrice         Number `json:"regularMarketPrice"`
	RegularMarketChange        Number `json:"regularMarketChange"`
	RegularMarketChangePercent Number `json:"regularMarketChangePercent"`
	RegularMarketVolume        Number `json:"regularMarketVolume"`
	MarketCap                  Number `json:"marketCap"`

	FiftyTwoWeekChangePercent    Number `json:"fiftyTwoWeekChangePercent"`
	FiftyTwoWeekLowChangePercent Number `json:"fiftyTwoWeekLowChangePercent"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []Quote   `json:"result"`
		Error  *APIError `json:"error"`
	} `json:"quoteResponse"`
}

// GetQuotes retrieves quotes for one or more symbols in a single call.
// Symbols Yahoo does not know are silently absent from the result.
func (c *Client) GetQuotes(ctx context.Context, symbols ...string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, errors.New("yahoo: no symbols")
	}

	var body quoteResponse
	params := url.Values{"symbols": []string{strings.Join(symbols, ",")}}
	if err := c.getJSON(ctx, "/v7/finance/quote", params, &body); err != nil {
		return nil, err
	}
	if body.QuoteResponse.Error != nil {
		return nil, body.QuoteResponse.Error
	}
	return body.QuoteResponse.Result, nil
}

// GetQuote retrieves the quote for a single symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	quotes, err := c.GetQuotes(ctx, symbol)
	if err != nil {
		return nil, err
	}
	for i := range quotes {
		if quotes[i].Symbol == "" || strings.EqualFold(quotes[i].Symbol, symbol) {
			return &quotes[i], nil
		}
	}
	return nil, ErrNoResult
}
