package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS analyses (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    resume_hash TEXT NOT NULL,
    job_description_hash TEXT NOT NULL,
    analysis_type TEXT NOT NULL,
    result TEXT NOT NULL,
    resume_name TEXT NOT NULL DEFAULT '',
    job_title TEXT NOT NULL DEFAULT '',
    company_name TEXT NOT NULL DEFAULT '',
    job_description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS analyses_lookup ON analyses (user_id, resume_hash, job_description_hash, analysis_type);
CREATE INDEX IF NOT EXISTS analyses_user ON analyses (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS cover_letters (
    id BIGSERIAL PRIMARY KEY,
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
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS cover_letters_lookup ON cover_letters (user_id, resume_hash, job_description_hash, tone, length);
CREATE INDEX IF NOT EXISTS cover_letters_user ON cover_letters (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS tailored_resumes (
    id BIGSERIAL PRIMARY KEY,
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
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS tailored_resumes_lookup ON tailored_resumes (user_id, resume_hash, job_description_hash, template_id);
`

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	sqlStore
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	p := &Postgres{Pool: pool}
	p.sqlStore = sqlStore{q: pgxQuerier{pool: pool}}
	return p, nil
}

// Migrate creates tables and lookup indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, postgresSchema)
	return err
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.Pool.Close()
	return nil
}

type pgxQuerier struct {
	pool *pgxpool.Pool
}

func (q pgxQuerier) queryRow(ctx context.Context, sql string, args ...any) rowScanner {
	return q.pool.QueryRow(ctx, sql, args...)
}

func (q pgxQuerier) query(ctx context.Context, sql string, args ...any) (rowsScanner, func(), error) {
	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, err
	}
	return rows, rows.Close, nil
}

func (q pgxQuerier) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := q.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q pgxQuerier) isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
