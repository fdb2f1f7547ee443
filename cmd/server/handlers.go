package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"marketdash/internal/aggregate"
	"marketdash/internal/aifilter"
	"marketdash/internal/app"
	"marketdash/internal/provider"
	"marketdash/internal/provider/prediction"
)

const maxCompareTickers = 2

type marketService interface {
	Markets(ctx context.Context) aggregate.Group
	Popular(ctx context.Context) []aggregate.Category
	MarketSnapshot(ctx context.Context) []provider.Quote
	CompareStock(ctx context.Context, symbol string) (*aggregate.StockComparison, error)
}

type predictor interface {
	FetchPrediction(ctx context.Context, ticker string) (*prediction.Result, error)
	Compare(ctx context.Context, tickers ...string) []prediction.Outcome
}

type stockFilter interface {
	FilterStocks(ctx context.Context, candidates []aifilter.StockRecord, marketCap, riskLevel string) ([]aifilter.StockRecord, error)
}

type handler struct {
	markets    marketService
	predictor  predictor
	filter     stockFilter // nil when no Gemini key is configured
	candidates []aifilter.StockRecord
	logger     *zap.Logger
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Details: details})
}

// writeJSON encodes v before touching the response so an encoding failure
// can still be reported as a 500.
func (h *handler) writeJSON(w http.ResponseWriter, v any, failMsg string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
		writeError(w, http.StatusInternalServerError, failMsg, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) getMarkets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.markets.Markets(r.Context()), "Failed to fetch data")
}

func (h *handler) getPopular(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.markets.Popular(r.Context()), "Failed to fetch stock data")
}

func (h *handler) getMarketData(w http.ResponseWriter, r *http.Request) {
	quotes := h.markets.MarketSnapshot(r.Context())
	if len(quotes) == 0 {
		writeError(w, http.StatusInternalServerError, "Failed to fetch market data", "")
		return
	}
	h.writeJSON(w, quotes, "Failed to fetch market data")
}

func (h *handler) getStockCompare(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(zap.String("method", "getStockCompare"))

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "Symbol is required", "")
		return
	}

	res, err := h.markets.CompareStock(r.Context(), symbol)
	if err != nil {
		logger.Error("compare stock", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch stock data", err.Error())
		return
	}
	h.writeJSON(w, res, "Failed to fetch stock data")
}

type filterRequest struct {
	MarketCap string `json:"marketCap"`
	RiskLevel string `json:"riskLevel"`
}

type filterResponse struct {
	FilteredStocks []aifilter.StockRecord `json:"filteredStocks"`
}

func (h *handler) postFilterStocks(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(zap.String("method", "postFilterStocks"))

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
		return
	}

	var body filterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	if strings.TrimSpace(body.MarketCap) == "" || strings.TrimSpace(body.RiskLevel) == "" {
		writeError(w, http.StatusBadRequest, "marketCap and riskLevel are required", "")
		return
	}
	if _, err := (aifilter.Criteria{MarketCap: body.MarketCap, RiskLevel: body.RiskLevel}).Normalize(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter criteria", err.Error())
		return
	}
	if h.filter == nil {
		writeError(w, http.StatusServiceUnavailable, "AI filtering is not configured", "")
		return
	}

	stocks, err := h.filter.FilterStocks(r.Context(), h.candidates, body.MarketCap, body.RiskLevel)
	if err != nil {
		logger.Error("filter stocks", zap.Error(err))
		if errors.Is(err, aifilter.ErrInvalidCriteria) {
			writeError(w, http.StatusBadRequest, "Invalid filter criteria", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to filter stocks", err.Error())
		return
	}
	h.writeJSON(w, filterResponse{FilteredStocks: stocks}, "Failed to filter stocks")
}

func (h *handler) getPredict(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(zap.String("method", "getPredict"))

	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "Ticker is required", "")
		return
	}

	res, err := h.predictor.FetchPrediction(r.Context(), ticker)
	if err != nil {
		logger.Error("fetch prediction", zap.String("ticker", ticker), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch prediction data", err.Error())
		return
	}
	h.writeJSON(w, res, "Failed to fetch prediction data")
}

type compareResponse struct {
	Results []prediction.Outcome `json:"results"`
}

func (h *handler) getCompare(w http.ResponseWriter, r *http.Request) {
	tickers := app.SplitList(r.URL.Query().Get("tickers"))
	if len(tickers) == 0 || len(tickers) > maxCompareTickers {
		writeError(w, http.StatusBadRequest, "Provide one or two tickers", "")
		return
	}
	h.writeJSON(w, compareResponse{Results: h.predictor.Compare(r.Context(), tickers...)}, "Failed to fetch prediction data")
}
