package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type routerConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

func newRouter(h *handler, cfg routerConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(withJSONHeaders)
	r.Use(withGzip)
	// inside gzip so the error body is written before the stream closes
	r.Use(recoverPanic(logger))
	r.Use(limitBody(cfg.MaxBodyBytes))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", h.healthz)

	r.Get("/markets", h.getMarkets)
	r.Get("/popular", h.getPopular)
	r.Get("/market-data", h.getMarketData)
	r.Get("/stock-compare", h.getStockCompare)
	r.HandleFunc("/filter-stocks", h.postFilterStocks)
	r.Get("/predict", h.getPredict)
	r.Get("/compare", h.getCompare)

	r.Route("/api", func(r chi.Router) {
		r.Get("/Markets", h.getMarkets)
		r.Get("/popular", h.getPopular)
		r.Get("/market-data", h.getMarketData)
		r.Get("/StockCompare", h.getStockCompare)
		r.HandleFunc("/filter-stocks", h.postFilterStocks)
	})

	return r
}
