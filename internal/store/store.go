// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists pending submissions and the permanent conference,
// paper, and author records on SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/conference-engine/pkg/types"
)

// DefaultSQLitePath is used when no DSN is configured for sqlite3.
const DefaultSQLitePath = "data/conference-engine.db"

// busyTimeoutMillis bounds how long a SQLite writer waits for the lock.
const busyTimeoutMillis = 5000

var (
	// ErrNotFound is returned for an unknown submission or author id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a transition is attempted on a
	// submission that is no longer pending.
	ErrInvalidState = errors.New("submission is not pending")

	// ErrMergeConflict is returned when the approval transaction fails.
	// Nothing from the failed approval is persisted.
	ErrMergeConflict = errors.New("merge conflict")

	// ErrIdentityMismatch is returned when a refresh resolves to a different
	// external identity than the one stored on the author row.
	ErrIdentityMismatch = errors.New("external identity mismatch")
)

// Store wraps a database/sql handle with dialect-aware query building.
type Store struct {
	db     *sql.DB
	driver types.StoreDriver
	sb     sq.StatementBuilderType
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the configured database and creates the schema if it
// does not exist.
func Open(ctx context.Context, cfg types.StoreConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = types.DriverSQLite
	}

	dsn := cfg.DSN
	switch driver {
	case types.DriverSQLite:
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		if inMemory(dsn) {
			return nil, fmt.Errorf("store: in-memory sqlite database %q is not supported, use a file path", dsn)
		}
		if dir := filepath.Dir(sqlitePath(dsn)); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		dsn = sqliteDSN(dsn)
	case types.DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("store: %s driver requires a DSN", driver)
		}
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := New(db, driver)
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// New wraps an open handle without touching the schema.
func New(db *sql.DB, driver types.StoreDriver) *Store {
	var ph sq.PlaceholderFormat = sq.Question
	if driver == types.DriverPostgres {
		ph = sq.Dollar
	}
	return &Store{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(ph),
	}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// sqliteDSN adds the connection parameters the approval transaction relies
// on: BEGIN IMMEDIATE so concurrent approvals serialize on the write lock,
// and a busy timeout so the loser waits instead of failing.
func sqliteDSN(dsn string) string {
	params := fmt.Sprintf("_txlock=immediate&_busy_timeout=%d&_foreign_keys=on&_journal_mode=WAL", busyTimeoutMillis)
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

// inMemory reports whether dsn names a private in-memory database. Each
// pooled connection would open its own empty copy.
func inMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func sqlitePath(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn
}

func (s *Store) beginTx(ctx context.Context) (*sql.Tx, error) {
	var opts *sql.TxOptions
	if s.driver == types.DriverPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return s.db.BeginTx(ctx, opts)
}

func (s *Store) createSchema(ctx context.Context) error {
	id, ref := "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER"
	if s.driver == types.DriverPostgres {
		id, ref = "BIGSERIAL PRIMARY KEY", "BIGINT"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS conferences (
			id ` + id + `,
			name TEXT NOT NULL,
			organizers TEXT,
			location TEXT,
			featured_workshops TEXT,
			classification TEXT,
			ranking TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id ` + id + `,
			title TEXT NOT NULL,
			conference_id ` + ref + ` NOT NULL REFERENCES conferences(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_conference_id ON papers(conference_id)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id ` + id + `,
			name TEXT NOT NULL,
			h_index INTEGER,
			external_id TEXT UNIQUE,
			affiliation TEXT,
			last_refreshed TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_authors_name ON authors(name)`,
		`CREATE TABLE IF NOT EXISTS paper_authors (
			paper_id ` + ref + ` NOT NULL REFERENCES papers(id),
			author_id ` + ref + ` NOT NULL REFERENCES authors(id),
			PRIMARY KEY (paper_id, author_id)
		)`,
		`CREATE TABLE IF NOT EXISTS pending_submissions (
			id ` + id + `,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			submitted_at TEXT NOT NULL,
			decided_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_status ON pending_submissions(status, submitted_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// insertReturningID runs an insert and returns the generated id. RETURNING
// works on both PostgreSQL and SQLite 3.35+.
func insertReturningID(ctx context.Context, q queryer, b sq.InsertBuilder) (int64, error) {
	query, args, err := b.Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, fmt.Errorf("building insert: %w", err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func exec(ctx context.Context, q queryer, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building statement: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// timeLayout is fixed width so stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
