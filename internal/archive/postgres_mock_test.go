package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmguard-server/internal/domain"
)

func setupMockArchive(t *testing.T) (*PostgresArchive, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresArchive(db, archiveTestLogger())
	require.NoError(t, err)

	return store, mock
}

func TestPostgresArchiveQueries(t *testing.T) {
	t.Run("Save_Issues_Upsert", func(t *testing.T) {
		store, mock := setupMockArchive(t)
		defer store.Close()

		report := archivedReport("report-1", "PATIENT-001", "CODEINE", time.Now().UTC())

		mock.ExpectExec("INSERT INTO reports").
			WithArgs("report-1", "PATIENT-001", "CODEINE", "Toxic", "high", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Save(context.Background(), report)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Get_Decodes_Payload", func(t *testing.T) {
		store, mock := setupMockArchive(t)
		defer store.Close()

		report := archivedReport("report-2", "PATIENT-002", "WARFARIN", time.Now().UTC())
		payload, err := json.Marshal(report)
		require.NoError(t, err)

		mock.ExpectQuery("SELECT payload FROM reports").
			WithArgs("report-2").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(string(payload)))

		got, err := store.Get(context.Background(), "report-2")

		require.NoError(t, err)
		assert.Equal(t, "report-2", got.ReportID)
		assert.Equal(t, "WARFARIN", got.Drug)
		assert.Equal(t, domain.TOXIC, got.RiskAssessment.RiskLabel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Get_Missing_Is_Not_Found", func(t *testing.T) {
		store, mock := setupMockArchive(t)
		defer store.Close()

		mock.ExpectQuery("SELECT payload FROM reports").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := store.Get(context.Background(), "missing")

		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("List_Filters_By_Patient", func(t *testing.T) {
		store, mock := setupMockArchive(t)
		defer store.Close()

		report := archivedReport("report-3", "PATIENT-003", "CODEINE", time.Now().UTC())
		payload, err := json.Marshal(report)
		require.NoError(t, err)

		mock.ExpectQuery("SELECT payload FROM reports").
			WithArgs("PATIENT-003", 50, 0).
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(string(payload)))

		reports, err := store.List(context.Background(), "PATIENT-003", 0, 0)

		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "report-3", reports[0].ReportID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Count_Reports_Total", func(t *testing.T) {
		store, mock := setupMockArchive(t)
		defer store.Close()

		mock.ExpectQuery("SELECT COUNT").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

		count, err := store.Count(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(42), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete_Missing_Is_No_Op", func(t *testing.T) {
		store, mock := setupMockArchive(t)
		defer store.Close()

		mock.ExpectExec("DELETE FROM reports").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Delete(context.Background(), "missing")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Save_Reports_Database_Error", func(t *testing.T) {
		store, mock := setupMockArchive(t)
		defer store.Close()

		report := archivedReport("report-4", "PATIENT-004", "CODEINE", time.Now().UTC())

		mock.ExpectExec("INSERT INTO reports").
			WillReturnError(errors.New("connection reset"))

		err := store.Save(context.Background(), report)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save report")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
