package metrics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecordLookupCounters(t *testing.T) {
	m := New()

	m.RecordLookup(LookupOutcome{Source: "store", DurationMs: 12})
	m.RecordLookup(LookupOutcome{Source: "cache", DurationMs: 2})
	m.RecordLookup(LookupOutcome{Source: "none", DurationMs: 4, CacheErr: true})
	m.RecordLookup(LookupOutcome{Source: "store", DurationMs: 8, PopulateErr: true})

	if got := m.Lookups.Load(); got != 4 {
		t.Fatalf("expected 4 lookups, got %d", got)
	}
	if got := m.StoreHits.Load(); got != 2 {
		t.Fatalf("expected 2 store hits, got %d", got)
	}
	if got := m.CacheHits.Load(); got != 1 {
		t.Fatalf("expected 1 cache hit, got %d", got)
	}
	if got := m.NotFound.Load(); got != 1 {
		t.Fatalf("expected 1 not found, got %d", got)
	}
	if m.CacheErrs.Load() != 1 || m.PopulateFailures.Load() != 1 || m.StoreErrs.Load() != 0 {
		t.Fatalf("unexpected error counters: cache=%d store=%d populate=%d",
			m.CacheErrs.Load(), m.StoreErrs.Load(), m.PopulateFailures.Load())
	}
	if m.MinLatencyMs.Load() != 2 || m.MaxLatencyMs.Load() != 12 {
		t.Fatalf("unexpected latency bounds: min=%d max=%d", m.MinLatencyMs.Load(), m.MaxLatencyMs.Load())
	}
}

func TestSnapshotEmpty(t *testing.T) {
	snap := New().Snapshot()
	latency := snap["latency_ms"].(map[string]interface{})
	if latency["min"].(int64) != 0 {
		t.Fatalf("expected min latency 0 with no lookups, got %v", latency["min"])
	}
	lookups := snap["lookups"].(map[string]interface{})
	if lookups["cache_hit_pct"].(float64) != 0 {
		t.Fatalf("expected 0%% hit rate, got %v", lookups["cache_hit_pct"])
	}
}

func TestJSONHandler(t *testing.T) {
	m := New()
	m.RecordSave(3, true)
	m.RecordSave(5, false)

	rec := httptest.NewRecorder()
	m.JSONHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var body struct {
		Saves struct {
			Total  int64 `json:"total"`
			Failed int64 `json:"failed"`
		} `json:"saves"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Saves.Total != 2 || body.Saves.Failed != 1 {
		t.Fatalf("unexpected saves: %+v", body.Saves)
	}
}

func TestPrometheusHandler(t *testing.T) {
	InitPrometheus("songcache_test", nil)
	defer func() { promMetrics = nil }()

	m := New()
	m.RecordLookup(LookupOutcome{Source: "cache", DurationMs: 1})
	m.RecordSave(2, false)
	IncActiveRequests()
	DecActiveRequests()

	srv := httptest.NewServer(PrometheusHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	body := string(data)

	for _, want := range []string{
		`songcache_test_lookups_total{source="cache"} 1`,
		`songcache_test_saves_total{status="failed"} 1`,
		`songcache_test_active_requests 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestPrometheusHandlerDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when disabled, got %d", rec.Code)
	}
}
