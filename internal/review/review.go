// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review is the submission state machine. Submissions are enriched
// and held as pending until an administrator approves or rejects them;
// approval merges the payload into the permanent records.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/conference-engine/internal/logging"
	"github.com/pdiddy/conference-engine/internal/lookup"
	"github.com/pdiddy/conference-engine/internal/store"
	"github.com/pdiddy/conference-engine/pkg/types"
)

// State machine errors. They match the store's sentinels under errors.Is.
var (
	ErrNotFound      = store.ErrNotFound
	ErrInvalidState  = store.ErrInvalidState
	ErrMergeConflict = store.ErrMergeConflict

	// ErrInvalidKind is returned by Submit for an unknown submission kind.
	ErrInvalidKind = errors.New("invalid submission kind")

	// ErrRefreshFailed is returned when an explicit author refresh could
	// not resolve the author. The stored row is left unchanged.
	ErrRefreshFailed = errors.New("author refresh failed")
)

// Enricher produces the payload stored on a new submission.
type Enricher interface {
	Enrich(ctx context.Context, raw types.RawSubmission) types.EnrichedPayload
}

// AuthorResolver re-resolves a stored author on explicit refresh.
type AuthorResolver interface {
	Resolve(ctx context.Context, name string) types.EnrichedAuthor
}

// Repository is the persistence the state machine needs. *store.Store
// implements it.
type Repository interface {
	CreatePending(ctx context.Context, kind types.SubmissionKind, payload types.EnrichedPayload, at time.Time) (types.PendingSubmission, error)
	GetPending(ctx context.Context, id int64) (types.PendingSubmission, error)
	ListPending(ctx context.Context) ([]types.PendingSubmission, error)
	Approve(ctx context.Context, id int64, at time.Time) (types.MergeResult, error)
	Reject(ctx context.Context, id int64, at time.Time) (types.PendingSubmission, error)
	UpdatePending(ctx context.Context, id int64, payload types.EnrichedPayload) (types.PendingSubmission, error)
	GetAuthor(ctx context.Context, id int64) (types.Author, error)
	RefreshAuthor(ctx context.Context, id int64, a types.EnrichedAuthor, at time.Time) (types.Author, error)
}

// Service exposes the pipeline operations to the request layer.
type Service struct {
	enricher Enricher
	resolver AuthorResolver
	repo     Repository
	now      func() time.Time
	logger   *slog.Logger

	submitted   *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRegisterer registers the service's counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) {
		if reg != nil {
			reg.MustRegister(s.submitted, s.transitions)
		}
	}
}

// NewService wires the state machine.
func NewService(enricher Enricher, resolver AuthorResolver, repo Repository, opts ...Option) *Service {
	s := &Service{
		enricher: enricher,
		resolver: resolver,
		repo:     repo,
		now:      time.Now,
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Submissions stored as pending, by kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_transitions_total",
			Help: "Transition attempts out of pending, by target status and outcome.",
		}, []string{"status", "outcome"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.With(s.logger, "review")
	return s
}

// Submit enriches raw and stores it as a pending submission. Enrichment
// never fails the call; only the insert can.
func (s *Service) Submit(ctx context.Context, kind types.SubmissionKind, raw types.RawSubmission) (types.PendingSubmission, error) {
	if kind == "" {
		kind = types.KindNewConference
	}
	if !kind.Valid() {
		return types.PendingSubmission{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	payload := s.enricher.Enrich(ctx, raw)
	p, err := s.repo.CreatePending(ctx, kind, payload, s.now())
	if err != nil {
		return types.PendingSubmission{}, fmt.Errorf("storing submission: %w", err)
	}
	s.submitted.WithLabelValues(string(kind)).Inc()
	s.logger.Info("submission stored",
		slog.Int64("id", p.ID),
		slog.String("kind", string(kind)),
		slog.String("conference", raw.Name))
	return p, nil
}

// ListPending returns submissions awaiting review, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]types.PendingSubmission, error) {
	return s.repo.ListPending(ctx)
}

// Get returns one submission in any status.
func (s *Service) Get(ctx context.Context, id int64) (types.PendingSubmission, error) {
	return s.repo.GetPending(ctx, id)
}

// Approve transitions a pending submission to approved and merges its
// payload. On ErrMergeConflict nothing was persisted and the submission
// remains pending.
func (s *Service) Approve(ctx context.Context, id int64) (types.MergeResult, error) {
	res, err := s.repo.Approve(ctx, id, s.now())
	s.record(types.StatusApproved, err)
	if err != nil {
		s.logger.Warn("approval failed", slog.Int64("id", id), slog.Any("error", err))
		return types.MergeResult{}, err
	}
	s.logger.Info("submission approved",
		slog.Int64("id", id),
		slog.Int64("conference_id", res.ConferenceID),
		slog.Int("papers", len(res.PaperIDs)),
		slog.Int("authors", len(res.Authors)))
	return res, nil
}

// Reject transitions a pending submission to rejected.
func (s *Service) Reject(ctx context.Context, id int64) (types.PendingSubmission, error) {
	p, err := s.repo.Reject(ctx, id, s.now())
	s.record(types.StatusRejected, err)
	if err != nil {
		return types.PendingSubmission{}, err
	}
	s.logger.Info("submission rejected", slog.Int64("id", id))
	return p, nil
}

// UpdatePending lets an administrator correct the enriched payload of a
// submission before deciding it. The payload is stored as given.
func (s *Service) UpdatePending(ctx context.Context, id int64, payload types.EnrichedPayload) (types.PendingSubmission, error) {
	p, err := s.repo.UpdatePending(ctx, id, payload)
	if err != nil {
		return types.PendingSubmission{}, err
	}
	s.logger.Info("pending submission edited", slog.Int64("id", id), slog.String("conference", payload.Name))
	return p, nil
}

// RefreshAuthor re-resolves a stored author's name and writes the fresh
// metric and affiliation. A failed resolution leaves the row unchanged.
func (s *Service) RefreshAuthor(ctx context.Context, authorID int64) (types.Author, error) {
	current, err := s.repo.GetAuthor(ctx, authorID)
	if err != nil {
		return types.Author{}, err
	}

	fresh := s.resolver.Resolve(lookup.NoCache(ctx), current.Name)
	if fresh.Error != "" {
		s.logger.Warn("author refresh failed", slog.Int64("author_id", authorID), slog.String("error", fresh.Error))
		return current, fmt.Errorf("%w: %s", ErrRefreshFailed, fresh.Error)
	}

	updated, err := s.repo.RefreshAuthor(ctx, authorID, fresh, s.now())
	if errors.Is(err, store.ErrIdentityMismatch) {
		s.logger.Warn("author refresh resolved a different identity", slog.Int64("author_id", authorID), slog.Any("error", err))
		return current, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if err != nil {
		return types.Author{}, err
	}
	s.logger.Info("author refreshed", slog.Int64("author_id", authorID), slog.String("author", current.Name))
	return updated, nil
}

func (s *Service) record(to types.SubmissionStatus, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrInvalidState):
		outcome = "invalid_state"
	case errors.Is(err, ErrMergeConflict):
		outcome = "merge_conflict"
	default:
		outcome = "error"
	}
	s.transitions.WithLabelValues(string(to), outcome).Inc()
}
