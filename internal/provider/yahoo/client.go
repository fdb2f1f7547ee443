package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

const (
	baseURL   = "https://query1.finance.yahoo.com"
	cookieURL = "https://fc.yahoo.com"
)

var (
	ErrUnauthorized = errors.New("yahoo: unauthorized")
	ErrNotFound     = errors.New("yahoo: not found")
	ErrRateLimited  = errors.New("yahoo: rate limited")
	ErrInvalidCrumb = errors.New("yahoo: invalid crumb")
	ErrNoResult     = errors.New("yahoo: empty result")
)

// StatusError reports an unexpected upstream status code.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("yahoo: GET %s -> %d", e.Path, e.StatusCode)
}

// APIError is the error object Yahoo embeds in otherwise successful responses.
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo: %s: %s", e.Code, e.Description)
}

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Yahoo Finance query API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// cookieURL is visited once to obtain the session cookie the crumb is bound to.
	cookieURL string
	// httpClient is the HTTP client. It must keep cookies between calls for the crumb to work.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
	// useCrumb controls whether the crumb handshake runs before API calls.
	useCrumb bool

	mu    sync.RWMutex
	crumb string
	sf    singleflight.Group
}

// ClientOption is a configuration option for the Yahoo client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithCookieURL sets the page used to obtain the session cookie.
func WithCookieURL(u string) ClientOption {
	return func(c *Client) {
		c.cookieURL = u
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithCrumb toggles the cookie/crumb handshake. It is on by default.
func WithCrumb(enabled bool) ClientOption {
	return func(c *Client) {
		c.useCrumb = enabled
	}
}

// NewClient creates a new Yahoo Finance client.
func NewClient(options ...ClientOption) (*Client, error) {
	var c = &Client{
		baseURL:    baseURL,
		cookieURL:  cookieURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
		useCrumb:   true,
	}
	for _, option := range options {
		option(c)
	}
	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	return c, nil
}

// getJSON performs an authenticated GET against path and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	crumb, err := c.getCrumb(ctx)
	if err != nil {
		return fmt.Errorf("obtaining crumb: %w", err)
	}

	query := maps.Clone(c.query)
	if query == nil {
		query = url.Values{}
	}
	for key, values := range params {
		query[key] = values
	}
	if crumb != "" {
		query.Set("crumb", crumb)
	}

	u := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusUnauthorized, http.StatusForbidden:
		// the crumb expired or the cookie was dropped; the next call starts a new handshake
		c.resetCrumb()
		return ErrUnauthorized

	case http.StatusNotFound:
		// chart and quote endpoints answer 404 with a JSON error body for unknown symbols
		var body map[string]struct {
			Error *APIError `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err == nil {
			for _, section := range body {
				if section.Error != nil {
					return fmt.Errorf("%w: %w", ErrNotFound, section.Error)
				}
			}
		}
		return ErrNotFound

	case http.StatusTooManyRequests:
		return ErrRateLimited

	default:
		return &StatusError{Path: path, StatusCode: res.StatusCode}
	}

	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
