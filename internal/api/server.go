package api

import (
	"net/http"

	"github.com/oriys/songcache/internal/api/dataplane"
	"github.com/oriys/songcache/internal/logging"
	"github.com/oriys/songcache/internal/metrics"
	"github.com/oriys/songcache/internal/observability"
	"github.com/oriys/songcache/internal/songs"
)

// ServerConfig contains dependencies for the HTTP server.
type ServerConfig struct {
	Songs   *songs.Service
	Metrics *metrics.Metrics // Optional: defaults to metrics.Global()
}

// NewHandler builds the routed and instrumented HTTP handler.
func NewHandler(cfg ServerConfig) http.Handler {
	mux := http.NewServeMux()

	dpHandler := &dataplane.Handler{
		Songs:   cfg.Songs,
		Metrics: cfg.Metrics,
	}
	dpHandler.RegisterRoutes(mux)

	// Wrap with tracing middleware
	var handler http.Handler = mux
	handler = observability.HTTPMiddleware(handler)
	handler = trackActiveRequests(handler)

	return handler
}

// StartHTTPServer creates and starts the HTTP server with the data plane handlers.
func StartHTTPServer(addr string, cfg ServerConfig) *http.Server {
	server := &http.Server{
		Addr:    addr,
		Handler: NewHandler(cfg),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Op().Error("HTTP server error", "error", err)
		}
	}()

	return server
}

func trackActiveRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.IncActiveRequests()
		defer metrics.DecActiveRequests()
		next.ServeHTTP(w, r)
	})
}
