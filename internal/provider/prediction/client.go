package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"marketdash/internal/trace"
)

const (
	DefaultHost = "https://magnitudebackend.onrender.com"

	correlationHeader = "X-Correlation-ID"
)

var ErrEmptyTicker = errors.New("prediction: ticker is required")

// StatusError reports a non-2xx answer from the prediction service.
type StatusError struct {
	Ticker     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prediction %s: responded with %v http code", e.Ticker, e.StatusCode)
}

type NewsArticle struct {
	Datetime       string  `json:"datetime"`
	Title          string  `json:"title"`
	SentimentScore float64 `json:"sentiment_score"`
}

type Outlook struct {
	Prediction string `json:"prediction"`
	Sentiment  string `json:"sentiment"`
}

// Result is the sentiment analysis the service returns for one ticker.
type Result struct {
	Ticker           string        `json:"ticker"`
	AverageSentiment float64       `json:"average_sentiment"`
	Prediction       Outlook       `json:"prediction"`
	News             []NewsArticle `json:"news"`
}

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	host   string
	client HTTPClient
	logger *zap.Logger
}

func NewClient(c HTTPClient, host string, logger *zap.Logger) *Client {
	if host == "" {
		host = DefaultHost
	}
	if c == nil {
		c = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		host:   strings.TrimRight(host, "/"),
		client: c,
		logger: logger.With(zap.String("caller", "PredictionClient")),
	}
}

// FetchPrediction asks the service to analyze ticker. The ticker is
// upper-cased before it is sent.
func (pc *Client) FetchPrediction(ctx context.Context, ticker string) (*Result, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrEmptyTicker
	}

	ctx, span := trace.StartSpan(ctx, "prediction.FetchPrediction", attribute.String("ticker", ticker))
	defer span.End()

	res, err := pc.fetch(ctx, ticker)
	trace.Fail(span, err)
	return res, err
}

func (pc *Client) fetch(ctx context.Context, ticker string) (*Result, error) {
	correlationID := uuid.NewString()
	logger := pc.logger.With(
		zap.String("method", "FetchPrediction"),
		zap.String("ticker", ticker),
		zap.String("correlation_id", correlationID),
	)

	path, err := url.JoinPath(pc.host, "/analyze")
	if err != nil {
		return nil, fmt.Errorf("build request url: %w", err)
	}
	path += "?" + url.Values{"ticker": []string{ticker}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(correlationHeader, correlationID)

	start := time.Now()
	resp, err := pc.client.Do(req)
	logger.Debug("finish run", zap.Duration("duration", time.Since(start)))
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Ticker: ticker, StatusCode: resp.StatusCode}
	}

	var r Result
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &r, nil
}
