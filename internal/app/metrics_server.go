package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/observability"
)

// NewMetricsServer builds the worker's scrape endpoint for the given registry.
func NewMetricsServer(addr string, metrics *observability.Metrics) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
