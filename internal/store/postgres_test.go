package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/country-catalog/internal/errs"
	"github.com/sells-group/country-catalog/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

// anyUpsertArgs matches the 11 positional arguments of the country upsert
// without asserting their values; pgxmock requires the argument count to
// match even when values are not checked.
func anyUpsertArgs() []interface{} {
	args := make([]interface{}, 11)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgres_FindByName_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, capital, region, population`).
		WithArgs("atlantis").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.FindByName(context.Background(), "Atlantis")
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindByName_FoldsNameForLookup(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE name_key = \$1`).
		WithArgs(model.NameKey("JAPAN")).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.FindByName(context.Background(), "JAPAN")
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteByName(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM countries WHERE name_key = \$1`).
		WithArgs("japan").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteByName(context.Background(), "Japan"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteByName_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM countries`).
		WithArgs("atlantis").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteByName(context.Background(), "Atlantis")
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Count(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM countries`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(195))

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 195, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMetadata_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT key_name, key_value, updated_at FROM system_metadata`).
		WithArgs(model.MetadataKeyLastRefreshed).
		WillReturnError(pgx.ErrNoRows)

	meta, err := s.GetMetadata(context.Background(), model.MetadataKeyLastRefreshed)
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetMetadata_Upserts(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO system_metadata .+ ON CONFLICT \(key_name\) DO UPDATE`).
		WithArgs(model.MetadataKeyLastRefreshed, now.Format(time.RFC3339Nano), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetMetadata(context.Background(), model.MetadataKeyLastRefreshed, now.Format(time.RFC3339Nano), now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ApplyRefresh_SingleTransaction(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	refreshedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	records := []model.Country{
		{ID: "id-1", Name: "Canada", Population: 37000000, LastRefreshedAt: refreshedAt},
		{ID: "id-2", Name: "Japan", Population: 125000000, LastRefreshedAt: refreshedAt},
	}

	mock.ExpectBegin()
	for range records {
		mock.ExpectExec(`INSERT INTO "countries" .+ ON CONFLICT \("name_key"\) DO UPDATE`).
			WithArgs(anyUpsertArgs()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectExec(`INSERT INTO system_metadata`).
		WithArgs(model.MetadataKeyLastRefreshed, refreshedAt.Format(time.RFC3339Nano), refreshedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.ApplyRefresh(context.Background(), records, refreshedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ApplyRefresh_RollsBackOnUpsertFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	refreshedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "countries"`).
		WithArgs(anyUpsertArgs()...).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.ApplyRefresh(context.Background(),
		[]model.Country{{ID: "id-1", Name: "Canada", LastRefreshedAt: refreshedAt}}, refreshedAt)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS countries`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
