package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/stretchr/testify/require"
)

var errDB = errors.New("connection refused")

func TestSessionRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Get", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT access_token").WithArgs("s1").WillReturnError(errDB)

		_, err = NewSessionRepository(db).Get(ctx, "s1")
		require.ErrorIs(t, err, errDB)
		require.ErrorContains(t, err, "failed to query session")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Set", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO sessions").
			WithArgs("s1", "at", "rt", "Bearer", "", int64(0), int64(0), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnError(errDB)

		err = NewSessionRepository(db).Set(ctx, "s1", &models.Credential{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"})
		require.ErrorIs(t, err, errDB)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("DELETE FROM sessions").WithArgs("s1").WillReturnError(errDB)

		err = NewSessionRepository(db).Delete(ctx, "s1")
		require.ErrorIs(t, err, errDB)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("List Row Error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b").RowError(1, errDB)
		mock.ExpectQuery("SELECT id FROM sessions").WillReturnRows(rows)

		_, err = NewSessionRepository(db).List(ctx)
		require.ErrorIs(t, err, errDB)
		require.ErrorContains(t, err, "row iteration error")
	})
}

func TestSyncRunRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	run := testRun("s1", models.StateDone)

	t.Run("Sequence Begin Fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errDB)

		err = NewSyncRunRepository(db).RecordRun(ctx, run)
		require.ErrorIs(t, err, errDB)
		require.ErrorContains(t, err, "failed to generate sequence")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert Fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE sync_runs_sequence").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT value FROM sync_runs_sequence").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))
		mock.ExpectCommit()
		mock.ExpectExec("INSERT INTO sync_runs").WillReturnError(errDB)

		r := testRun("s1", models.StateDone)
		err = NewSyncRunRepository(db).RecordRun(ctx, r)
		require.ErrorIs(t, err, errDB)
		require.ErrorContains(t, err, "failed to insert sync run")
		require.Equal(t, 7, r.Sequence)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Commit Fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE sync_runs_sequence").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT value FROM sync_runs_sequence").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1))
		mock.ExpectCommit().WillReturnError(errDB)

		err = NewSyncRunRepository(db).RecordRun(ctx, testRun("s1", models.StateDone))
		require.ErrorIs(t, err, errDB)
		require.ErrorContains(t, err, "failed to commit sequence transaction")
	})

	t.Run("List Query Fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM sync_runs WHERE session_id").
			WithArgs("s1", DefaultRunLimit).
			WillReturnError(errDB)

		_, err = NewSyncRunRepository(db).List(ctx, "s1", 0)
		require.ErrorIs(t, err, errDB)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("List Scan Fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM sync_runs").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("only-one-column"))

		_, err = NewSyncRunRepository(db).List(ctx, "", 5)
		require.ErrorContains(t, err, "failed to scan sync run")
	})

	t.Run("Get Query Fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM sync_runs WHERE id").WithArgs("r1").WillReturnError(errDB)

		_, err = NewSyncRunRepository(db).Get(ctx, "r1")
		require.ErrorIs(t, err, errDB)
		require.NotErrorIs(t, err, ErrRunNotFound)
	})
}
