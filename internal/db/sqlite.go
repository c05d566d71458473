package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analyses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    resume_hash TEXT NOT NULL,
    job_description_hash TEXT NOT NULL,
    analysis_type TEXT NOT NULL,
    result TEXT NOT NULL,
    resume_name TEXT NOT NULL DEFAULT '',
    job_title TEXT NOT NULL DEFAULT '',
    company_name TEXT NOT NULL DEFAULT '',
    job_description TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS analyses_lookup ON analyses (user_id, resume_hash, job_description_hash, analysis_type);

CREATE TABLE IF NOT EXISTS cover_letters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    resume_hash TEXT NOT NULL,
    job_description_hash TEXT NOT NULL,
    tone TEXT NOT NULL,
    length TEXT NOT NULL,
    result TEXT NOT NULL,
    company_name TEXT NOT NULL DEFAULT '',
    hiring_manager_name TEXT NOT NULL DEFAULT '',
    resume_name TEXT NOT NULL DEFAULT '',
    job_description TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS cover_letters_lookup ON cover_letters (user_id, resume_hash, job_description_hash, tone, length);

CREATE TABLE IF NOT EXISTS tailored_resumes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    resume_hash TEXT NOT NULL,
    job_description_hash TEXT NOT NULL,
    template_id TEXT NOT NULL,
    structured_data TEXT NOT NULL,
    latex_source TEXT NOT NULL,
    job_title TEXT NOT NULL DEFAULT '',
    company_name TEXT NOT NULL DEFAULT '',
    resume_name TEXT NOT NULL DEFAULT '',
    job_description TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS tailored_resumes_lookup ON tailored_resumes (user_id, resume_hash, job_description_hash, template_id);
`

// SQLite is a single-file Store for local development and tests.
type SQLite struct {
	sqlStore
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and migrates it.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// One writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}

	s := &SQLite{db: db}
	s.sqlStore = sqlStore{q: sqliteQuerier{db: db}}
	return s, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

var placeholder = regexp.MustCompile(`\$\d+`)

// rebind turns $n placeholders into ?. Every query lists its arguments in
// placeholder order, so position is preserved.
func rebind(query string) string {
	return placeholder.ReplaceAllString(query, "?")
}

type sqliteQuerier struct {
	db *sql.DB
}

func (q sqliteQuerier) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	return q.db.QueryRowContext(ctx, rebind(query), args...)
}

func (q sqliteQuerier) query(ctx context.Context, query string, args ...any) (rowsScanner, func(), error) {
	rows, err := q.db.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, nil, err
	}
	return rows, func() { rows.Close() }, nil
}

func (q sqliteQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q sqliteQuerier) isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
