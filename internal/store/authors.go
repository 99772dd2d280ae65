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

var authorColumns = []string{"id", "name", "h_index", "external_id", "affiliation", "last_refreshed"}

// GetAuthor returns one author row.
func (s *Store) GetAuthor(ctx context.Context, id int64) (types.Author, error) {
	query, args, err := s.sb.Select(authorColumns...).From("authors").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return types.Author{}, fmt.Errorf("building query: %w", err)
	}
	a, err := scanAuthor(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Author{}, fmt.Errorf("author %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Author{}, fmt.Errorf("reading author %d: %w", id, err)
	}
	return a, nil
}

// ListAuthors returns every author ordered by id.
func (s *Store) ListAuthors(ctx context.Context) ([]types.Author, error) {
	query, args, err := s.sb.Select(authorColumns...).From("authors").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing authors: %w", err)
	}
	defer rows.Close()

	out := []types.Author{}
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning author: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RefreshAuthor writes freshly resolved enrichment onto an author row. The
// external identity is set only when the row has none. A row that already
// carries an identity is updated only by a result for that same identity;
// otherwise ErrIdentityMismatch is returned and the row is left unchanged.
func (s *Store) RefreshAuthor(ctx context.Context, id int64, a types.EnrichedAuthor, at time.Time) (types.Author, error) {
	b := s.sb.Update("authors").
		Set("h_index", a.Metric).
		Set("affiliation", a.Affiliation).
		Set("last_refreshed", formatTime(at))
	if a.ExternalID != nil {
		b = b.Set("external_id", sq.Expr("COALESCE(external_id, ?)", *a.ExternalID)).
			Where(sq.And{
				sq.Eq{"id": id},
				sq.Or{sq.Eq{"external_id": nil}, sq.Eq{"external_id": *a.ExternalID}},
			})
	} else {
		b = b.Where(sq.Eq{"id": id, "external_id": nil})
	}

	n, err := exec(ctx, s.db, b)
	if err != nil {
		return types.Author{}, fmt.Errorf("refreshing author %d: %w", id, err)
	}
	if n == 0 {
		current, err := s.GetAuthor(ctx, id)
		if err != nil {
			return types.Author{}, err
		}
		return types.Author{}, fmt.Errorf("author %d has identity %s, refresh resolved %s: %w",
			id, formatIdentity(current.ExternalID), formatIdentity(a.ExternalID), ErrIdentityMismatch)
	}
	return s.GetAuthor(ctx, id)
}

func formatIdentity(ext *string) string {
	if ext == nil {
		return "none"
	}
	return *ext
}

func scanAuthor(row rowScanner) (types.Author, error) {
	var (
		a         types.Author
		metric    sql.NullInt64
		ext       sql.NullString
		aff       sql.NullString
		refreshed sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &metric, &ext, &aff, &refreshed); err != nil {
		return types.Author{}, err
	}
	a.Metric = nullableInt(metric)
	a.ExternalID = nullableString(ext)
	a.Affiliation = nullableString(aff)
	if refreshed.Valid {
		t, err := parseTime(refreshed.String)
		if err != nil {
			return types.Author{}, err
		}
		a.LastRefreshed = t
	}
	return a, nil
}

// GetConference returns one conference row.
func (s *Store) GetConference(ctx context.Context, id int64) (types.Conference, error) {
	query, args, err := s.sb.
		Select("id", "name", "organizers", "location", "featured_workshops", "classification", "ranking", "created_at").
		From("conferences").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return types.Conference{}, fmt.Errorf("building query: %w", err)
	}

	var (
		c                   types.Conference
		org, loc, workshops sql.NullString
		class, rank         sql.NullString
		created             string
	)
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&c.ID, &c.Name, &org, &loc, &workshops, &class, &rank, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Conference{}, fmt.Errorf("conference %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Conference{}, fmt.Errorf("reading conference %d: %w", id, err)
	}
	c.Organizers, c.Location, c.FeaturedWorkshops = org.String, loc.String, workshops.String
	if class.Valid {
		if err := json.Unmarshal([]byte(class.String), &c.Classification); err != nil {
			return types.Conference{}, fmt.Errorf("decoding classification: %w", err)
		}
	}
	if rank.Valid {
		if err := json.Unmarshal([]byte(rank.String), &c.Ranking); err != nil {
			return types.Conference{}, fmt.Errorf("decoding ranking: %w", err)
		}
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return types.Conference{}, err
	}
	return c, nil
}

// ListPapers returns a conference's papers with their linked author ids.
func (s *Store) ListPapers(ctx context.Context, conferenceID int64) ([]types.Paper, error) {
	query, args, err := s.sb.Select("p.id", "p.title", "pa.author_id").
		From("papers p").
		LeftJoin("paper_authors pa ON pa.paper_id = p.id").
		Where(sq.Eq{"p.conference_id": conferenceID}).
		OrderBy("p.id", "pa.author_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	out := []types.Paper{}
	for rows.Next() {
		var (
			id       int64
			title    string
			authorID sql.NullInt64
		)
		if err := rows.Scan(&id, &title, &authorID); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, types.Paper{ID: id, Title: title, ConferenceID: conferenceID, AuthorIDs: []int64{}})
		}
		if authorID.Valid {
			last := &out[len(out)-1]
			last.AuthorIDs = append(last.AuthorIDs, authorID.Int64)
		}
	}
	return out, rows.Err()
}
