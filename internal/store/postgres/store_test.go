package postgres

import (
	"aichat-relay/internal/store"
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow implements pgx.Row.
type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

// fakeQuerier records upserts in a map, mimicking the kv_store table.
type fakeQuerier struct {
	rows    map[string]string
	execErr error
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	v, ok := q.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: v}
}

func (q *fakeQuerier) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	if q.execErr != nil {
		return pgconn.CommandTag{}, q.execErr
	}
	q.rows[args[0].(string)] = args[1].(string)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresStore_GetSet(t *testing.T) {
	s := &PostgresStore{db: &fakeQuerier{rows: map[string]string{}}}
	ctx := context.Background()

	_, err := s.Get(ctx, store.KeyModel)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, store.KeyModel, "mimo-v2-flash"))
	v, err := s.Get(ctx, store.KeyModel)
	require.NoError(t, err)
	assert.Equal(t, "mimo-v2-flash", v)
}

func TestPostgresStore_SetError(t *testing.T) {
	boom := errors.New("connection reset")
	s := &PostgresStore{db: &fakeQuerier{rows: map[string]string{}, execErr: boom}}

	err := s.Set(context.Background(), store.KeyModel, "x")
	assert.ErrorIs(t, err, boom)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
