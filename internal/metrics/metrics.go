package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// LookupOutcome describes one served lookup.
type LookupOutcome struct {
	Source      string // cache, store or none
	DurationMs  int64
	CacheErr    bool
	StoreErr    bool
	PopulateErr bool
}

// Metrics collects in-process counters exposed on /stats
type Metrics struct {
	Lookups    atomic.Int64
	CacheHits  atomic.Int64
	StoreHits  atomic.Int64
	NotFound   atomic.Int64
	CacheErrs  atomic.Int64
	StoreErrs  atomic.Int64

	PopulateFailures atomic.Int64

	Saves        atomic.Int64
	SaveFailures atomic.Int64

	// Lookup latency (in milliseconds)
	TotalLatencyMs atomic.Int64
	MinLatencyMs   atomic.Int64
	MaxLatencyMs   atomic.Int64

	startTime time.Time
}

var global = New()

// New returns an empty Metrics. Most callers use Global.
func New() *Metrics {
	m := &Metrics{startTime: time.Now()}
	m.MinLatencyMs.Store(int64(^uint64(0) >> 1))
	return m
}

// Global returns the process-wide metrics instance
func Global() *Metrics {
	return global
}

// RecordLookup records a lookup here and in Prometheus when enabled
func (m *Metrics) RecordLookup(o LookupOutcome) {
	m.Lookups.Add(1)
	switch o.Source {
	case "cache":
		m.CacheHits.Add(1)
	case "store":
		m.StoreHits.Add(1)
	default:
		m.NotFound.Add(1)
	}
	if o.CacheErr {
		m.CacheErrs.Add(1)
	}
	if o.StoreErr {
		m.StoreErrs.Add(1)
	}
	if o.PopulateErr {
		m.PopulateFailures.Add(1)
	}

	m.TotalLatencyMs.Add(o.DurationMs)
	updateMin(&m.MinLatencyMs, o.DurationMs)
	updateMax(&m.MaxLatencyMs, o.DurationMs)

	recordPrometheusLookup(o)
}

// RecordSave records a save here and in Prometheus when enabled
func (m *Metrics) RecordSave(durationMs int64, success bool) {
	m.Saves.Add(1)
	if !success {
		m.SaveFailures.Add(1)
	}
	recordPrometheusSave(durationMs, success)
}

// Snapshot returns the current counters as a JSON-friendly map
func (m *Metrics) Snapshot() map[string]interface{} {
	total := m.Lookups.Load()
	avgLatency := float64(0)
	if total > 0 {
		avgLatency = float64(m.TotalLatencyMs.Load()) / float64(total)
	}

	minLatency := m.MinLatencyMs.Load()
	if minLatency == int64(^uint64(0)>>1) {
		minLatency = 0
	}

	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"lookups": map[string]interface{}{
			"total":         total,
			"cache_hits":    m.CacheHits.Load(),
			"store_hits":    m.StoreHits.Load(),
			"not_found":     m.NotFound.Load(),
			"cache_hit_pct": percentage(m.CacheHits.Load(), total),
		},
		"errors": map[string]interface{}{
			"cache":    m.CacheErrs.Load(),
			"store":    m.StoreErrs.Load(),
			"populate": m.PopulateFailures.Load(),
		},
		"saves": map[string]interface{}{
			"total":  m.Saves.Load(),
			"failed": m.SaveFailures.Load(),
		},
		"latency_ms": map[string]interface{}{
			"avg": avgLatency,
			"min": minLatency,
			"max": m.MaxLatencyMs.Load(),
		},
	}
}

// JSONHandler serves Snapshot as JSON
func (m *Metrics) JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.Snapshot())
	})
}

func updateMin(target *atomic.Int64, value int64) {
	for {
		current := target.Load()
		if value >= current {
			return
		}
		if target.CompareAndSwap(current, value) {
			return
		}
	}
}

func updateMax(target *atomic.Int64, value int64) {
	for {
		current := target.Load()
		if value <= current {
			return
		}
		if target.CompareAndSwap(current, value) {
			return
		}
	}
}

func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
