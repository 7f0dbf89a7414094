package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/doccollection/store"
	"github.com/dmitrijs2005/doccollection/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		s, err := OpenSQLite(context.Background(), ":memory:")
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteStore_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "c", store.Document{ID: "x", Data: map[string]any{"v": "kept"}}))
	require.NoError(t, s.Close())

	// reopening runs the migrations again, which must be a no-op
	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.Get(ctx, "c", "x")
	require.NoError(t, err)
	require.True(t, snap.Exists)
	assert.Equal(t, "kept", snap.Data["v"])
}

func TestOpenViaRegistry(t *testing.T) {
	ctx := context.Background()

	_, err := store.Open(ctx, store.Config{Driver: SQLiteDriver})
	require.ErrorIs(t, err, store.ErrMissingSettings)
	_, err = store.Open(ctx, store.Config{Driver: PostgresDriver})
	require.ErrorIs(t, err, store.ErrMissingSettings)

	b, err := store.Open(ctx, store.Config{Driver: SQLiteDriver, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestMigrate_Error(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return errors.New("boom")
	}

	_, err := OpenSQLite(context.Background(), ":memory:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate sqlite")
	assert.Equal(t, "migrations/sqlite", gotDir)
}

func newPostgresWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres), mock
}

func TestPostgres_UpdateMissing(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`)).
		WithArgs("people", "nope").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.Update(context.Background(), "people", "nope", map[string]any{"age": 1})
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateMerges(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM documents .* FOR UPDATE`).
		WithArgs("people", "a").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"name":"ann","age":17}`)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET data = $1::jsonb WHERE collection = $2 AND id = $3`)).
		WithArgs(`{"age":18,"name":"ann"}`, "people", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Update(context.Background(), "people", "a", map[string]any{"age": 18}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BatchRollsBack(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM documents .* FOR UPDATE`).
		WithArgs("people", "a").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"age":17}`)))
	mock.ExpectExec(`UPDATE documents SET data`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT data FROM documents .* FOR UPDATE`).
		WithArgs("people", "missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.Batch(context.Background(), "people", []store.Update{
		{ID: "a", Fields: map[string]any{"age": 99}},
		{ID: "missing", Fields: map[string]any{"age": 1}},
	})
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetUpserts(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectExec(`INSERT INTO documents .* VALUES \(\$1, \$2, \$3::jsonb\)\s+ON CONFLICT \(collection, id\) DO UPDATE SET data = EXCLUDED.data`).
		WithArgs("people", "a", `{"name":"ann"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), "people", store.Document{ID: "a", Data: map[string]any{"name": "ann"}}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BulkWriteCollectsFailures(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectExec(`INSERT INTO documents`).WithArgs("people", "a", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO documents`).WithArgs("people", "b", sqlmock.AnyArg()).
		WillReturnError(errors.New("boom"))
	mock.ExpectExec(`INSERT INTO documents`).WithArgs("people", "c", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.BulkWrite(context.Background(), "people", []store.Document{
		{ID: "a", Data: map[string]any{}},
		{ID: "b", Data: map[string]any{}},
		{ID: "c", Data: map[string]any{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document b")
	assert.NotContains(t, err.Error(), "document a")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMissing(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT data FROM documents`).
		WithArgs("people", "x").
		WillReturnError(sql.ErrNoRows)

	snap, err := s.Get(context.Background(), "people", "x")
	require.NoError(t, err)
	assert.False(t, snap.Exists)
}
