package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	sql     []string
	args    [][]any
	execErr error
	pingErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) Ping(context.Context) error {
	return f.pingErr
}

func TestRecordInsertsRow(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	err := s.Record(context.Background(), Record{
		ID:          "abc",
		CreatedAt:   now,
		Features:    []float64{1, 67, 0, 1, 1, 2, 1, 228.69, 36.6, 1},
		Label:       1,
		Probability: 0.82,
	})
	require.NoError(t, err)
	require.Len(t, db.sql, 1)
	assert.Contains(t, db.sql[0], "INSERT INTO stroke_assessments")
	assert.Equal(t, []any{"abc", now, []float64{1, 67, 0, 1, 1, 2, 1, 228.69, 36.6, 1}, 1, 0.82}, db.args[0])
}

func TestRecordWrapsError(t *testing.T) {
	boom := errors.New("connection reset")
	s := &Store{db: &fakeDB{execErr: boom}}
	err := s.Record(context.Background(), Record{ID: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.Len(t, db.sql, 1)
	assert.Contains(t, db.sql[0], "CREATE TABLE IF NOT EXISTS stroke_assessments")
}

func TestPingAndClose(t *testing.T) {
	closed := false
	s := &Store{db: &fakeDB{pingErr: errors.New("down")}, close: func() { closed = true }}
	assert.Error(t, s.Ping(context.Background()))
	s.Close()
	assert.True(t, closed)
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://localhost:notaport/db")
	assert.Error(t, err)
}
