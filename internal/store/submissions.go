// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/conference-engine/pkg/types"
)

const pendingTable = "pending_submissions"

var pendingColumns = []string{"id", "kind", "payload", "status", "submitted_at", "decided_at"}

// CreatePending stores an enriched payload as a new pending submission.
func (s *Store) CreatePending(ctx context.Context, kind types.SubmissionKind, payload types.EnrichedPayload, at time.Time) (types.PendingSubmission, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return types.PendingSubmission{}, fmt.Errorf("encoding payload: %w", err)
	}

	at = at.UTC()
	id, err := insertReturningID(ctx, s.db, s.sb.Insert(pendingTable).
		Columns("kind", "payload", "status", "submitted_at").
		Values(string(kind), string(data), string(types.StatusPending), formatTime(at)))
	if err != nil {
		return types.PendingSubmission{}, fmt.Errorf("inserting pending submission: %w", err)
	}

	return types.PendingSubmission{
		ID:          id,
		Kind:        kind,
		Payload:     payload,
		Status:      types.StatusPending,
		SubmittedAt: at,
	}, nil
}

// GetPending returns one submission in any status.
func (s *Store) GetPending(ctx context.Context, id int64) (types.PendingSubmission, error) {
	return s.getPending(ctx, s.db, id)
}

func (s *Store) getPending(ctx context.Context, q queryer, id int64) (types.PendingSubmission, error) {
	query, args, err := s.sb.Select(pendingColumns...).From(pendingTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return types.PendingSubmission{}, fmt.Errorf("building query: %w", err)
	}
	p, err := scanPending(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.PendingSubmission{}, fmt.Errorf("submission %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.PendingSubmission{}, fmt.Errorf("reading submission %d: %w", id, err)
	}
	return p, nil
}

// ListByStatus returns submissions with the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status types.SubmissionStatus) ([]types.PendingSubmission, error) {
	query, args, err := s.sb.Select(pendingColumns...).From(pendingTable).
		Where(sq.Eq{"status": string(status)}).
		OrderBy("submitted_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	out := []types.PendingSubmission{}
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPending returns the submissions awaiting review, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]types.PendingSubmission, error) {
	return s.ListByStatus(ctx, types.StatusPending)
}

// Reject moves a pending submission to rejected. The conditional update
// guarantees at most one transition out of pending.
func (s *Store) Reject(ctx context.Context, id int64, at time.Time) (types.PendingSubmission, error) {
	n, err := exec(ctx, s.db, s.transition(id, types.StatusRejected, at))
	if err != nil {
		return types.PendingSubmission{}, fmt.Errorf("rejecting submission %d: %w", id, err)
	}
	if n == 0 {
		return types.PendingSubmission{}, s.transitionError(ctx, id)
	}
	return s.GetPending(ctx, id)
}

// UpdatePending replaces the payload of a submission that is still pending.
// Decided submissions are refused with ErrInvalidState.
func (s *Store) UpdatePending(ctx context.Context, id int64, payload types.EnrichedPayload) (types.PendingSubmission, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return types.PendingSubmission{}, fmt.Errorf("encoding payload: %w", err)
	}
	n, err := exec(ctx, s.db, s.sb.Update(pendingTable).
		Set("payload", string(data)).
		Where(sq.Eq{"id": id, "status": string(types.StatusPending)}))
	if err != nil {
		return types.PendingSubmission{}, fmt.Errorf("updating submission %d: %w", id, err)
	}
	if n == 0 {
		return types.PendingSubmission{}, s.transitionError(ctx, id)
	}
	return s.GetPending(ctx, id)
}

// transition builds the compare-and-set update out of pending.
func (s *Store) transition(id int64, to types.SubmissionStatus, at time.Time) sq.UpdateBuilder {
	return s.sb.Update(pendingTable).
		Set("status", string(to)).
		Set("decided_at", formatTime(at)).
		Where(sq.Eq{"id": id, "status": string(types.StatusPending)})
}

// transitionError explains why a compare-and-set matched no row.
func (s *Store) transitionError(ctx context.Context, id int64) error {
	p, err := s.GetPending(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("submission %d is %s: %w", id, p.Status, ErrInvalidState)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPending(row rowScanner) (types.PendingSubmission, error) {
	var (
		p         types.PendingSubmission
		kind      string
		payload   string
		status    string
		submitted string
		decided   sql.NullString
	)
	if err := row.Scan(&p.ID, &kind, &payload, &status, &submitted, &decided); err != nil {
		return types.PendingSubmission{}, err
	}
	p.Kind = types.SubmissionKind(kind)
	p.Status = types.SubmissionStatus(status)
	if err := json.Unmarshal([]byte(payload), &p.Payload); err != nil {
		return types.PendingSubmission{}, fmt.Errorf("decoding payload: %w", err)
	}
	t, err := parseTime(submitted)
	if err != nil {
		return types.PendingSubmission{}, err
	}
	p.SubmittedAt = t
	if decided.Valid {
		d, err := parseTime(decided.String)
		if err != nil {
			return types.PendingSubmission{}, err
		}
		p.DecidedAt = &d
	}
	return p, nil
}
