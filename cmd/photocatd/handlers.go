package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sekai02/photocat/internal/api"
	"github.com/sekai02/photocat/internal/catalog"
	"github.com/sekai02/photocat/internal/conversation"
	"github.com/sekai02/photocat/internal/ids"
	"github.com/sekai02/photocat/internal/metrics"
)

type handler struct {
	service *api.Service
	gather  prometheus.Gatherer
	metrics *metrics.Collector
	logger  *zap.Logger
}

func newHandler(service *api.Service, gather prometheus.Gatherer, logger *zap.Logger) *handler {
	return &handler{
		service: service,
		gather:  gather,
		metrics: service.Metrics(),
		logger:  logger.With(zap.String("component", "http")),
	}
}

func (h *handler) routes(limiter *rate.Limiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/records", h.handleCreate)
	mux.HandleFunc("GET /v1/records", h.handleList)
	mux.HandleFunc("GET /v1/records/{id}", h.handleGet)
	mux.HandleFunc("PATCH /v1/records/{id}", h.handleUpdate)
	mux.HandleFunc("GET /v1/authors", h.handleAuthors)
	mux.HandleFunc("POST /v1/sessions", h.handleOpenSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.handleCloseSession)
	mux.HandleFunc("POST /v1/sessions/{id}/input", h.handleInput)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if h.gather != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gather, promhttp.HandlerOpts{}))
	}

	return h.instrument(limiter, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) instrument(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil && !limiter.Allow() {
			if h.metrics != nil {
				h.metrics.RecordRateLimited()
			}
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if h.metrics != nil {
			h.metrics.RecordHTTPRequest(r.Method, route, rec.status, time.Since(start))
		}
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, api.ErrRecordNotFound), errors.Is(err, conversation.ErrUnknownSession):
		status = http.StatusNotFound
	case errors.Is(err, api.ErrUnknownKind), errors.Is(err, ids.ErrInvalidID):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

type recordRequest struct {
	Location   string   `json:"location"`
	Authors    []string `json:"authors"`
	Tags       []string `json:"tags"`
	Characters []string `json:"characters"`
}

func (h *handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Location == "" {
		http.Error(w, "missing location", http.StatusBadRequest)
		return
	}

	rec, err := h.service.CreateRecord(r.Context(), req.Location, req.Authors, req.Tags, req.Characters)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		records []catalog.Record
		err     error
	)
	switch {
	case q.Has(api.KindAuthor):
		records, err = h.service.Search(r.Context(), api.KindAuthor, q.Get(api.KindAuthor))
	case q.Has(api.KindTag):
		records, err = h.service.Search(r.Context(), api.KindTag, q.Get(api.KindTag))
	case q.Has(api.KindCharacter):
		records, err = h.service.Search(r.Context(), api.KindCharacter, q.Get(api.KindCharacter))
	default:
		records, err = h.service.ListRecords(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func parseRecordID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, ids.ErrInvalidID
	}
	return id, nil
}

func (h *handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecordID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rec, err := h.service.GetRecord(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecordID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.service.UpdateRecord(r.Context(), id, catalog.Patch{
		Authors:    req.Authors,
		Tags:       req.Tags,
		Characters: req.Characters,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) handleAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.Authors(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"authors": authors})
}

func (h *handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	sid, err := h.service.OpenSession(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": string(sid)})
}

func (h *handler) sessionID(w http.ResponseWriter, r *http.Request) (ids.SessionID, bool) {
	sid, err := ids.ParseSessionID(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session ID", http.StatusBadRequest)
		return "", false
	}
	return sid, true
}

func (h *handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.service.CloseSession(r.Context(), sid); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleInput(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var in conversation.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := h.service.Input(r.Context(), sid, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
