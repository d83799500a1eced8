package dataplane

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/oriys/songcache/internal/metrics"
	"github.com/oriys/songcache/internal/songs"
)

// Handler handles data plane HTTP requests (songs and observability).
type Handler struct {
	Songs   *songs.Service
	Metrics *metrics.Metrics // nil uses metrics.Global()
}

// RegisterRoutes registers all data plane routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Songs
	mux.HandleFunc("POST /cd", h.SaveSong)
	mux.HandleFunc("GET /cd/{title...}", h.SearchSongByTitle)

	// Health probes
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", h.HealthLive)
	mux.HandleFunc("GET /health/ready", h.HealthReady)

	// Observability
	mux.Handle("GET /stats", h.metrics().JSONHandler())
	mux.Handle("GET /metrics", metrics.PrometheusHandler())
}

func (h *Handler) metrics() *metrics.Metrics {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Global()
}

// Health handles GET /health - detailed status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeErr, cacheErr := h.Songs.Ping(ctx)

	status := "ok"
	if storeErr != nil || cacheErr != nil {
		status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"components": map[string]interface{}{
			"store": storeErr == nil,
			"cache": cacheErr == nil,
		},
		"cache_outage_as_miss": h.Songs.Options().CacheOutageAsMiss,
	})
}

// HealthLive handles GET /health/live - Kubernetes liveness probe
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HealthReady handles GET /health/ready - Kubernetes readiness probe
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeErr, cacheErr := h.Songs.Ping(ctx)
	if storeErr != nil {
		writeNotReady(w, "store unavailable: "+storeErr.Error())
		return
	}
	if cacheErr != nil {
		writeNotReady(w, "cache unavailable: "+cacheErr.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

func writeNotReady(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "not_ready",
		"error":  msg,
	})
}
