// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httpapi exposes the submission pipeline over HTTP: a public
// submission endpoint and the administrator review endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/conference-engine/internal/logging"
	"github.com/pdiddy/conference-engine/internal/review"
	"github.com/pdiddy/conference-engine/pkg/types"
)

// maxBodyBytes caps submission request bodies.
const maxBodyBytes = 1 << 20

// Pipeline is the set of operations the handlers call. *review.Service
// implements it.
type Pipeline interface {
	Submit(ctx context.Context, kind types.SubmissionKind, raw types.RawSubmission) (types.PendingSubmission, error)
	ListPending(ctx context.Context) ([]types.PendingSubmission, error)
	Get(ctx context.Context, id int64) (types.PendingSubmission, error)
	Approve(ctx context.Context, id int64) (types.MergeResult, error)
	Reject(ctx context.Context, id int64) (types.PendingSubmission, error)
	UpdatePending(ctx context.Context, id int64, payload types.EnrichedPayload) (types.PendingSubmission, error)
	RefreshAuthor(ctx context.Context, authorID int64) (types.Author, error)
}

// CacheAdmin manages the author lookup cache.
type CacheAdmin interface {
	ClearCache()
	CacheLen() int
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// API is the HTTP layer.
type API struct {
	mux      *http.ServeMux
	pipeline Pipeline
	cache    CacheAdmin
	ready    Pinger
	gatherer prometheus.Gatherer
	metrics  *Metrics
	logger   *slog.Logger
	version  string
}

// Option customizes an API.
type Option func(*API)

// WithCacheAdmin enables POST /admin/cache/clear.
func WithCacheAdmin(c CacheAdmin) Option {
	return func(a *API) { a.cache = c }
}

// WithReadiness makes /healthz ping p.
func WithReadiness(p Pinger) Option {
	return func(a *API) { a.ready = p }
}

// WithRegistry serves /metrics from reg and records request metrics on it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *API) {
		a.gatherer = reg
		a.metrics = NewMetrics(reg)
	}
}

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(a *API) { a.version = v }
}

// New builds the API and registers its routes.
func New(p Pipeline, opts ...Option) *API {
	a := &API{
		mux:      http.NewServeMux(),
		pipeline: p,
		gatherer: prometheus.DefaultGatherer,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.With(a.logger, "http")

	a.mux.HandleFunc("POST /submissions", a.submit)
	a.mux.HandleFunc("GET /admin/pending", a.listPending)
	a.mux.HandleFunc("GET /admin/pending/{id}", a.getPending)
	a.mux.HandleFunc("PUT /admin/pending/{id}", a.updatePending)
	a.mux.HandleFunc("POST /admin/pending/{id}/approve", a.approve)
	a.mux.HandleFunc("POST /admin/pending/{id}/reject", a.reject)
	a.mux.HandleFunc("POST /admin/authors/{id}/refresh", a.refreshAuthor)
	a.mux.HandleFunc("POST /admin/cache/clear", a.clearCache)
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.Handle("GET /metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	return a
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.metrics.Instrument(h)
	h = AccessLog(a.logger, h)
	h = RequestID(h)
	return h
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	kind := types.SubmissionKind(r.URL.Query().Get("kind"))

	var raw types.RawSubmission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&raw); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "invalid submission body: "+err.Error())
		return
	}

	// Enrichment runs to completion even if the client disconnects; each
	// lookup is still bounded by its own timeout.
	p, err := a.pipeline.Submit(context.WithoutCancel(r.Context()), kind, raw)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) listPending(w http.ResponseWriter, r *http.Request) {
	list, err := a.pipeline.ListPending(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) getPending(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	p, err := a.pipeline.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// updateBody is the body of a pending edit. Payload must be present.
type updateBody struct {
	Payload *types.EnrichedPayload `json:"payload"`
}

func (a *API) updatePending(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var body updateBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "invalid edit body: "+err.Error())
		return
	}
	if body.Payload == nil {
		a.writeError(w, r, http.StatusBadRequest, "edit body has no payload")
		return
	}
	p, err := a.pipeline.UpdatePending(r.Context(), id, *body.Payload)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	res, err := a.pipeline.Approve(context.WithoutCancel(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	p, err := a.pipeline.Reject(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) refreshAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	author, err := a.pipeline.RefreshAuthor(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (a *API) clearCache(w http.ResponseWriter, r *http.Request) {
	if a.cache == nil {
		a.writeError(w, r, http.StatusNotImplemented, "lookup cache is not configured")
		return
	}
	n := a.cache.CacheLen()
	a.cache.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "conference-engine",
		"version": a.version,
	})
}

func (a *API) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		a.writeError(w, r, http.StatusBadRequest, "invalid id "+strconv.Quote(r.PathValue("id")))
		return 0, false
	}
	return id, true
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, review.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrInvalidState), errors.Is(err, review.ErrMergeConflict):
		return http.StatusConflict
	case errors.Is(err, review.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, review.ErrRefreshFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String(FieldRequestID, RequestIDFrom(r.Context())),
			slog.Any("error", err))
	}
	a.writeError(w, r, code, err.Error())
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error":      msg,
		"request_id": RequestIDFrom(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
