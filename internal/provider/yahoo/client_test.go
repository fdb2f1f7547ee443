package yahoo_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"marketdash/internal/provider/yahoo"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

const quoteBody = `{"quoteResponse":{"result":[
	{"symbol":"AAPL","shortName":"Apple Inc.","longName":"Apple Inc.","regularMarketPrice":189.5,
	 "regularMarketChange":-1.25,"regularMarketChangePercent":-0.655,"regularMarketVolume":"51,234,100",
	 "marketCap":{"raw":2950000000000,"fmt":"2.95T"},"fiftyTwoWeekChangePercent":null},
	{"symbol":"^GSPC","longName":"S&P 500","regularMarketPrice":5100.25,"marketCap":"N/A"}
],"error":null}}`

func TestGetQuotes(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/v7/finance/quote", req.URL.Path)
			require.Equal(t, "AAPL,^GSPC", req.URL.Query().Get("symbols"))
			require.Empty(t, req.URL.Query().Get("crumb"))
			require.Equal(t, "application/json", req.Header.Get("Accept"))
			return response(http.StatusOK, quoteBody), nil
		}).
		Times(1)

	// Arrange: setup a client without the crumb handshake
	client, err := yahoo.NewClient(yahoo.WithHTTPClient(httpClient), yahoo.WithCrumb(false))
	require.NoError(t, err)

	// Act
	quotes, err := client.GetQuotes(t.Context(), "AAPL", "^GSPC")

	// Assert
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	apple := quotes[0]
	require.Equal(t, "AAPL", apple.Symbol)
	require.Equal(t, "Apple Inc.", apple.ShortName)
	require.InEpsilon(t, 189.5, *apple.RegularMarketPrice.Ptr(), 1e-9)
	require.InEpsilon(t, -1.25, *apple.RegularMarketChange.Ptr(), 1e-9)
	require.InEpsilon(t, 51234100.0, *apple.RegularMarketVolume.Ptr(), 1e-9)
	require.InEpsilon(t, 2.95e12, *apple.MarketCap.Ptr(), 1e-9)
	require.Nil(t, apple.FiftyTwoWeekChangePercent.Ptr())

	index := quotes[1]
	require.Empty(t, index.ShortName)
	require.Equal(t, "S&P 500", index.LongName)
	require.False(t, index.MarketCap.Valid())
	require.False(t, index.RegularMarketVolume.Valid())
}

func TestGetQuote_NoResult(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(response(http.StatusOK, `{"quoteResponse":{"result":[],"error":null}}`), nil).
		Times(1)

	client, err := yahoo.NewClient(yahoo.WithHTTPClient(httpClient), yahoo.WithCrumb(false))
	require.NoError(t, err)

	// Act
	quote, err := client.GetQuote(t.Context(), "NOPE")

	// Assert
	require.ErrorIs(t, err, yahoo.ErrNoResult)
	require.Nil(t, quote)
}

func TestGetQuotes_ErrorStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"quoteResponse":{"result":null,"error":{"code":"Not Found","description":"No data"}}}`, want: yahoo.ErrNotFound},
		{name: "not found without body", status: http.StatusNotFound, body: ``, want: yahoo.ErrNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `Too Many Requests`, want: yahoo.ErrRateLimited},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, want: yahoo.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				Return(response(tt.status, tt.body), nil).
				Times(1)

			client, err := yahoo.NewClient(yahoo.WithHTTPClient(httpClient), yahoo.WithCrumb(false))
			require.NoError(t, err)

			quotes, err := client.GetQuotes(t.Context(), "AAPL")
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, quotes)
		})
	}
}

func TestGetQuotes_NotFoundCarriesAPIError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(response(http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`), nil).
		Times(1)

	client, err := yahoo.NewClient(yahoo.WithHTTPClient(httpClient), yahoo.WithCrumb(false))
	require.NoError(t, err)

	_, err = client.GetChart(t.Context(), "ZZZZ", time.Unix(0, 0), time.Unix(86400, 0), "1d")

	var apiErr *yahoo.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Not Found", apiErr.Code)
	require.ErrorIs(t, err, yahoo.ErrNotFound)
}

func TestGetQuotes_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(response(http.StatusBadGateway, `bad gateway`), nil).
		Times(1)

	client, err := yahoo.NewClient(yahoo.WithHTTPClient(httpClient), yahoo.WithCrumb(false))
	require.NoError(t, err)

	_, err = client.GetQuotes(t.Context(), "AAPL")

	var statusErr *yahoo.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "/v7/finance/quote", statusErr.Path)
}

func TestGetQuotes_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(nil, fmt.Errorf("connection reset")).
		Times(1)

	client, err := yahoo.NewClient(yahoo.WithHTTPClient(httpClient), yahoo.WithCrumb(false))
	require.NoError(t, err)

	quotes, err := client.GetQuotes(t.Context(), "AAPL")
	require.Error(t, err)
	require.Nil(t, quotes)
}

func TestGetTrending(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/v1/finance/trending/US", req.URL.Path)
			require.Equal(t, "10", req.URL.Query().Get("count"))
			return response(http.StatusOK, `{"finance":{"result":[{"count":3,"quotes":[{"symbol":"NVDA"},{"symbol":"TSLA"},{"symbol":"AMD"}]}],"error":null}}`), nil
		}).
		Times(1)

	client, err := yahoo.NewClient(yahoo.WithHTTPClient(httpClient), yahoo.WithCrumb(false))
	require.NoError(t, err)

	// Act
	symbols, err := client.GetTrending(t.Context(), "US", 10)

	// Assert: order is preserved
	require.NoError(t, err)
	require.Equal(t, []string{"NVDA", "TSLA", "AMD"}, symbols)
}

func TestGetChart(t *testing.T) {
	t.Parallel()

	from := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC)

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/v8/finance/chart/AAPL", req.URL.Path)
			q := req.URL.Query()
			require.Equal(t, "1640995200", q.Get("period1"))
			require.Equal(t, "1641340800", q.Get("period2"))
			require.Equal(t, "1d", q.Get("interval"))
			return response(http.StatusOK, `{"chart":{"result":[{"meta":{"symbol":"AAPL"},
				"timestamp":[1641220200,1641306600,1641393000],
				"indicators":{"quote":[{"close":[182.01,null,174.92]}]}}],"error":null}}`), nil
		}).
		Times(1)

	client, err := yahoo.NewClient(yahoo.WithHTTPClient(httpClient), yahoo.WithCrumb(false))
	require.NoError(t, err)

	// Act
	bars, err := client.GetChart(t.Context(), "AAPL", from, to, "1d")

	// Assert
	require.NoError(t, err)
	require.Len(t, bars, 3)
	require.Equal(t, time.Unix(1641220200, 0).UTC(), bars[0].Time)
	require.InEpsilon(t, 182.01, *bars[0].Close, 1e-9)
	require.Nil(t, bars[1].Close)
	require.InEpsilon(t, 174.92, *bars[2].Close, 1e-9)
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	client, err := yahoo.NewClient(yahoo.WithBaseURL("not a url"))
	require.Error(t, err)
	require.Nil(t, client)
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "marketdash-test", req.Header.Get("User-Agent"))
			require.Equal(t, "example.test", req.URL.Host)
			return response(http.StatusOK, `{"quoteResponse":{"result":[],"error":null}}`), nil
		}).
		Times(1)

	client, err := yahoo.NewClient(
		yahoo.WithHTTPClient(httpClient),
		yahoo.WithCrumb(false),
		yahoo.WithBaseURL("https://example.test/"),
		yahoo.WithHeader(http.Header{"User-Agent": []string{"marketdash-test"}}),
	)
	require.NoError(t, err)

	_, err = client.GetQuotes(t.Context(), "AAPL")
	require.NoError(t, err)
}

// crumbServer emulates the cookie page, the crumb endpoint and a quote endpoint
// that only accepts the issued crumb.
type crumbServer struct {
	crumbCalls  atomic.Int32
	cookieCalls atomic.Int32
	rejectNext  atomic.Bool
	// gate, when set, holds the crumb endpoint until closed
	gate chan struct{}
}

func (s *crumbServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		s.cookieCalls.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		n := s.crumbCalls.Add(1)
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if s.gate != nil {
			<-s.gate
		}
		// widen the window in which concurrent callers could race a second handshake
		time.Sleep(20 * time.Millisecond)
		_, _ = fmt.Fprintf(w, "crumb%d", n)
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		if s.rejectNext.CompareAndSwap(true, false) || r.URL.Query().Get("crumb") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"quoteResponse":{"result":[{"symbol":"`+r.URL.Query().Get("crumb")+`"}],"error":null}}`)
	})
	return mux
}

func newJarClient(t *testing.T) *http.Client {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client.Jar = jar
	return client
}

func TestCrumbHandshake_SharedAcrossConcurrentCalls(t *testing.T) {
	t.Parallel()

	// Arrange
	cs := &crumbServer{}
	server := httptest.NewServer(cs.handler())
	t.Cleanup(server.Close)

	client, err := yahoo.NewClient(
		yahoo.WithHTTPClient(newJarClient(t)),
		yahoo.WithBaseURL(server.URL),
		yahoo.WithCookieURL(server.URL+"/cookie"),
	)
	require.NoError(t, err)

	// Act
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.GetQuotes(t.Context(), "AAPL")
		}()
	}
	wg.Wait()

	// Assert
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), cs.crumbCalls.Load())
	require.Equal(t, int32(1), cs.cookieCalls.Load())
}

func TestCrumbHandshake_SurvivesCancelledStarter(t *testing.T) {
	t.Parallel()

	// Arrange
	cs := &crumbServer{gate: make(chan struct{})}
	server := httptest.NewServer(cs.handler())
	t.Cleanup(server.Close)

	client, err := yahoo.NewClient(
		yahoo.WithHTTPClient(newJarClient(t)),
		yahoo.WithBaseURL(server.URL),
		yahoo.WithCookieURL(server.URL+"/cookie"),
	)
	require.NoError(t, err)

	starterCtx, cancelStarter := context.WithCancel(t.Context())
	starterErr := make(chan error, 1)
	go func() {
		_, err := client.GetQuotes(starterCtx, "AAPL")
		starterErr <- err
	}()
	require.Eventually(t, func() bool { return cs.crumbCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	waiterErr := make(chan error, 1)
	go func() {
		_, err := client.GetQuotes(t.Context(), "MSFT")
		waiterErr <- err
	}()
	// let the second caller join the in-flight handshake
	time.Sleep(50 * time.Millisecond)

	// Act
	cancelStarter()
	require.ErrorIs(t, <-starterErr, context.Canceled)
	close(cs.gate)

	// Assert
	require.NoError(t, <-waiterErr)
	require.Equal(t, int32(1), cs.crumbCalls.Load())
}

func TestCrumbHandshake_ResetOnUnauthorized(t *testing.T) {
	t.Parallel()

	// Arrange
	cs := &crumbServer{}
	server := httptest.NewServer(cs.handler())
	t.Cleanup(server.Close)

	client, err := yahoo.NewClient(
		yahoo.WithHTTPClient(newJarClient(t)),
		yahoo.WithBaseURL(server.URL),
		yahoo.WithCookieURL(server.URL+"/cookie"),
	)
	require.NoError(t, err)

	quotes, err := client.GetQuotes(t.Context(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "crumb1", quotes[0].Symbol)

	// Act: the upstream drops the session once
	cs.rejectNext.Store(true)
	_, err = client.GetQuotes(t.Context(), "AAPL")
	require.True(t, errors.Is(err, yahoo.ErrUnauthorized))

	quotes, err = client.GetQuotes(t.Context(), "AAPL")

	// Assert: a fresh crumb was negotiated
	require.NoError(t, err)
	require.Equal(t, "crumb2", quotes[0].Symbol)
	require.Equal(t, int32(2), cs.crumbCalls.Load())
}

func TestCrumbHandshake_InvalidCrumb(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>consent</html>")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := yahoo.NewClient(
		yahoo.WithHTTPClient(newJarClient(t)),
		yahoo.WithBaseURL(server.URL),
		yahoo.WithCookieURL(server.URL+"/cookie"),
	)
	require.NoError(t, err)

	_, err = client.GetQuotes(t.Context(), "AAPL")
	require.ErrorIs(t, err, yahoo.ErrInvalidCrumb)
}
