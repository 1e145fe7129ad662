// Package store keeps an optional Postgres audit trail of assessments.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `CREATE TABLE IF NOT EXISTS stroke_assessments (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMPTZ NOT NULL,
	features    DOUBLE PRECISION[] NOT NULL,
	label       INTEGER NOT NULL,
	probability DOUBLE PRECISION NOT NULL
)`

const insertAssessment = `INSERT INTO stroke_assessments (id, created_at, features, label, probability)
VALUES ($1, $2, $3, $4, $5)`

// Record is one audited prediction. Suggestion text is never stored.
type Record struct {
	ID          string
	CreatedAt   time.Time
	Features    []float64
	Label       int
	Probability float64
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

type Store struct {
	db    execer
	close func()
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Store{db: pool, close: pool.Close}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create stroke_assessments: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, r Record) error {
	_, err := s.db.Exec(ctx, insertAssessment, r.ID, r.CreatedAt, r.Features, r.Label, r.Probability)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

var _ execer = (*pgxpool.Pool)(nil)
