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

// Approve moves a pending submission to approved and, for new_conference
// submissions, writes its conference, papers, and authors. Everything runs
// in one transaction that starts with the compare-and-set, so a failed
// merge leaves the submission pending and no partial rows behind.
func (s *Store) Approve(ctx context.Context, id int64, at time.Time) (types.MergeResult, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return types.MergeResult{}, fmt.Errorf("%w: beginning transaction: %w", ErrMergeConflict, err)
	}
	defer tx.Rollback()

	n, err := exec(ctx, tx, s.transition(id, types.StatusApproved, at))
	if err != nil {
		return types.MergeResult{}, fmt.Errorf("%w: approving submission %d: %w", ErrMergeConflict, id, err)
	}
	if n == 0 {
		tx.Rollback()
		return types.MergeResult{}, s.transitionError(ctx, id)
	}

	kind, payload, err := s.loadPayload(ctx, tx, id)
	if err != nil {
		return types.MergeResult{}, fmt.Errorf("%w: %w", ErrMergeConflict, err)
	}

	result := types.MergeResult{SubmissionID: id}
	if kind == types.KindNewConference {
		m := &merger{s: s, tx: tx, at: at, authors: make(map[string]types.MergedAuthor)}
		if result, err = m.merge(ctx, id, payload); err != nil {
			return types.MergeResult{}, fmt.Errorf("%w: submission %d: %w", ErrMergeConflict, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.MergeResult{}, fmt.Errorf("%w: committing submission %d: %w", ErrMergeConflict, id, err)
	}
	return result, nil
}

func (s *Store) loadPayload(ctx context.Context, q queryer, id int64) (types.SubmissionKind, types.EnrichedPayload, error) {
	query, args, err := s.sb.Select("kind", "payload").From(pendingTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return "", types.EnrichedPayload{}, fmt.Errorf("building query: %w", err)
	}
	var kind, data string
	if err := q.QueryRowContext(ctx, query, args...).Scan(&kind, &data); err != nil {
		return "", types.EnrichedPayload{}, fmt.Errorf("reading submission %d: %w", id, err)
	}
	var payload types.EnrichedPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return "", types.EnrichedPayload{}, fmt.Errorf("decoding payload of submission %d: %w", id, err)
	}
	return types.SubmissionKind(kind), payload, nil
}

// merger writes one approved payload inside an open transaction.
type merger struct {
	s  *Store
	tx *sql.Tx
	at time.Time

	// authors remembers reconciled authors so a name listed on several
	// papers maps to one row.
	authors map[string]types.MergedAuthor
	order   []string
}

func (m *merger) merge(ctx context.Context, submissionID int64, p types.EnrichedPayload) (types.MergeResult, error) {
	class, err := json.Marshal(p.Classification)
	if err != nil {
		return types.MergeResult{}, fmt.Errorf("encoding classification: %w", err)
	}
	rank, err := json.Marshal(p.Ranking)
	if err != nil {
		return types.MergeResult{}, fmt.Errorf("encoding ranking: %w", err)
	}

	confID, err := insertReturningID(ctx, m.tx, m.s.sb.Insert("conferences").
		Columns("name", "organizers", "location", "featured_workshops", "classification", "ranking", "created_at").
		Values(p.Name, p.Organizers, p.Location, p.FeaturedWorkshops, string(class), string(rank), formatTime(m.at)))
	if err != nil {
		return types.MergeResult{}, fmt.Errorf("inserting conference: %w", err)
	}

	result := types.MergeResult{SubmissionID: submissionID, ConferenceID: confID}
	for _, paper := range p.Papers {
		paperID, err := insertReturningID(ctx, m.tx, m.s.sb.Insert("papers").
			Columns("title", "conference_id").
			Values(paper.Title, confID))
		if err != nil {
			return types.MergeResult{}, fmt.Errorf("inserting paper %q: %w", paper.Title, err)
		}
		result.PaperIDs = append(result.PaperIDs, paperID)

		for _, a := range paper.Authors {
			merged, err := m.reconcile(ctx, a)
			if err != nil {
				return types.MergeResult{}, fmt.Errorf("reconciling author %q: %w", a.Name, err)
			}
			if _, err := exec(ctx, m.tx, m.s.sb.Insert("paper_authors").
				Columns("paper_id", "author_id").
				Values(paperID, merged.AuthorID).
				Suffix("ON CONFLICT DO NOTHING")); err != nil {
				return types.MergeResult{}, fmt.Errorf("linking author %q to paper %d: %w", a.Name, paperID, err)
			}
		}
	}

	for _, key := range m.order {
		result.Authors = append(result.Authors, m.authors[key])
	}
	return result, nil
}

func authorKey(a types.EnrichedAuthor) string {
	if a.ExternalID != nil {
		return "id:" + *a.ExternalID
	}
	return "name:" + a.Name
}

// reconcile finds or creates the row for one enriched author. Lookup is by
// external identity first, then by exact name.
func (m *merger) reconcile(ctx context.Context, a types.EnrichedAuthor) (types.MergedAuthor, error) {
	key := authorKey(a)
	if merged, ok := m.authors[key]; ok {
		return merged, nil
	}

	id, storedExt, found, err := m.findAuthor(ctx, a)
	if err != nil {
		return types.MergedAuthor{}, err
	}

	merged := types.MergedAuthor{AuthorID: id, Name: a.Name}
	if found {
		if err := m.updateAuthor(ctx, id, storedExt, a); err != nil {
			return types.MergedAuthor{}, err
		}
	} else {
		newID, err := insertReturningID(ctx, m.tx, m.s.sb.Insert("authors").
			Columns("name", "h_index", "external_id", "affiliation", "last_refreshed").
			Values(a.Name, a.Metric, a.ExternalID, a.Affiliation, formatTime(m.at)))
		if err != nil {
			return types.MergedAuthor{}, fmt.Errorf("inserting author: %w", err)
		}
		merged.AuthorID = newID
		merged.Created = true
	}

	m.authors[key] = merged
	m.order = append(m.order, key)
	return merged, nil
}

func (m *merger) findAuthor(ctx context.Context, a types.EnrichedAuthor) (int64, *string, bool, error) {
	if a.ExternalID != nil {
		id, ext, found, err := m.selectAuthor(ctx, sq.Eq{"external_id": *a.ExternalID})
		if err != nil || found {
			return id, ext, found, err
		}
		// A row already tied to a different identity is a different person.
		return m.selectAuthor(ctx, sq.Eq{"name": a.Name, "external_id": nil})
	}
	return m.selectAuthor(ctx, sq.Eq{"name": a.Name})
}

func (m *merger) selectAuthor(ctx context.Context, where sq.Eq) (int64, *string, bool, error) {
	query, args, err := m.s.sb.Select("id", "external_id").From("authors").
		Where(where).OrderBy("id").Limit(1).ToSql()
	if err != nil {
		return 0, nil, false, fmt.Errorf("building query: %w", err)
	}
	var (
		id  int64
		ext sql.NullString
	)
	err = m.tx.QueryRowContext(ctx, query, args...).Scan(&id, &ext)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("finding author: %w", err)
	}
	return id, nullableString(ext), true, nil
}

// updateAuthor overwrites the stored enrichment with the submitted one. An
// author whose lookup failed carries no fresh data and is only linked.
func (m *merger) updateAuthor(ctx context.Context, id int64, storedExt *string, a types.EnrichedAuthor) error {
	if a.Error != "" {
		return nil
	}
	b := m.s.sb.Update("authors").
		Set("h_index", a.Metric).
		Set("affiliation", a.Affiliation).
		Set("last_refreshed", formatTime(m.at)).
		Where(sq.Eq{"id": id})
	if storedExt == nil && a.ExternalID != nil {
		b = b.Set("external_id", *a.ExternalID)
	}
	if _, err := exec(ctx, m.tx, b); err != nil {
		return fmt.Errorf("updating author %d: %w", id, err)
	}
	return nil
}
