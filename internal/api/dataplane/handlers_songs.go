package dataplane

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oriys/songcache/internal/domain"
	"github.com/oriys/songcache/internal/logging"
	"github.com/oriys/songcache/internal/metrics"
	"github.com/oriys/songcache/internal/observability"
)

const maxSongBody = 1 << 20

type saveSongRequest struct {
	Title  string `json:"title"`
	Singer string `json:"singer"`
	Text   string `json:"text"`
}

// SaveSong handles POST /cd
func (h *Handler) SaveSong(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.New().String()
	ctx := r.Context()

	req, err := decodeSaveSong(w, r)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := domain.ValidateSong(req.Title, req.Singer, req.Text); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.Songs.Save(ctx, req.Title, req.Singer, req.Text)
	durationMs := time.Since(start).Milliseconds()
	h.metrics().RecordSave(durationMs, err == nil)

	entry := &logging.RequestLog{
		RequestID:  requestID,
		TraceID:    observability.GetTraceID(ctx),
		Transport:  "http",
		Method:     "SaveSong",
		Title:      req.Title,
		Status:     "saved",
		DurationMs: durationMs,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
		logging.Default().Log(entry)
		logging.OpWithRequest(requestID, entry.TraceID).Error("save song failed", "title", req.Title, "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	logging.Default().Log(entry)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	io.WriteString(w, "Saved")
}

// SearchSongByTitle handles GET /cd/{title...}
func (h *Handler) SearchSongByTitle(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	if err := domain.ValidateTitle(title); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	requestID := uuid.New().String()
	ctx := r.Context()

	l := h.Songs.Lookup(ctx, title)
	durationMs := time.Since(start).Milliseconds()

	h.metrics().RecordLookup(metrics.LookupOutcome{
		Source:      l.Source.String(),
		DurationMs:  durationMs,
		CacheErr:    l.CacheErr != nil,
		StoreErr:    l.StoreErr != nil,
		PopulateErr: l.PopulateErr != nil,
	})

	traceID := observability.GetTraceID(ctx)
	entry := &logging.RequestLog{
		RequestID:  requestID,
		TraceID:    traceID,
		Transport:  "http",
		Method:     "SearchSongByTitle",
		Title:      title,
		Status:     "found",
		DurationMs: durationMs,
		Source:     l.Source.String(),
	}
	if !l.Found() {
		entry.Status = "not_found"
	}
	if err := l.Err(); err != nil {
		entry.Error = err.Error()
		logging.OpWithRequest(requestID, traceID).Warn("song lookup degraded",
			"title", title,
			"source", l.Source.String(),
			"cache_error", errString(l.CacheErr),
			"store_error", errString(l.StoreErr),
			"populate_error", errString(l.PopulateErr),
		)
	}
	logging.Default().Log(entry)

	if !l.Found() {
		http.Error(w, "Song not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(l.Song)
}

// decodeSaveSong reads a JSON body, or a urlencoded/multipart form otherwise.
func decodeSaveSong(w http.ResponseWriter, r *http.Request) (saveSongRequest, error) {
	var req saveSongRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxSongBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Title = r.FormValue("title")
	req.Singer = r.FormValue("singer")
	req.Text = r.FormValue("text")
	return req, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
