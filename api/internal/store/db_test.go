package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawcal/api/internal/config"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{})
	require.EqualError(t, err, "database DSN is empty: set DATABASE_URL or PGHOST")
}

func TestRunInTx(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context, tx *sqlx.Tx) error
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "commits on success",
			fn:   func(context.Context, *sqlx.Tx) error { return nil },
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit()
			},
		},
		{
			name: "rolls back on error",
			fn:   func(context.Context, *sqlx.Tx) error { return fmt.Errorf("something failed") },
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			errMsg: "something failed",
		},
		{
			name: "begin error",
			fn:   func(context.Context, *sqlx.Tx) error { return nil },
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(fmt.Errorf("begin failed"))
			},
			errMsg: "begin transaction",
		},
		{
			name: "commit error",
			fn:   func(context.Context, *sqlx.Tx) error { return nil },
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(fmt.Errorf("commit failed"))
			},
			errMsg: "commit transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			tt.setupMock(mock)

			err := RunInTx(context.Background(), db, tt.fn)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMigrate(t *testing.T) {
	t.Run("applies every statement in one transaction", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS sessions").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS sessions_user_active_idx").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		require.NoError(t, Migrate(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when a statement fails", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(fmt.Errorf("permission denied"))
		mock.ExpectRollback()

		err := Migrate(context.Background(), db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "apply schema: permission denied")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatements(t *testing.T) {
	got := statements("CREATE TABLE a (x int);\n\n  ;CREATE TABLE b (y int);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x int)", "CREATE TABLE b (y int)"}, got)
	assert.Len(t, statements(schema), 3)
}

func TestSafeDSNSummary(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{name: "with port", dsn: "postgres://calc:secret@db:5432/drawcal?sslmode=disable", want: "host=db port=5432 db=drawcal user=calc"},
		{name: "without port", dsn: "postgres://calc:secret@db/drawcal", want: "host=db db=drawcal user=calc"},
		{name: "unparseable", dsn: "postgres://%zz", want: "dsn: parse error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeDSNSummary(tt.dsn)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "secret")
		})
	}
}
