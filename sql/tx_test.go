package sql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOtelTx(t *testing.T) {
	tests := []struct {
		name          string
		mockFn        func(sqlmock.Sqlmock)
		finish        func(*sql.Tx) error
		wantErr       assert.ErrorAssertionFunc
		wantSummaries []string
		wantLastError bool
	}{
		{
			name: "given successful commit, then logs BEGIN, the statement and COMMIT",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO audit (action) VALUES ('login')").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			finish: func(tx *sql.Tx) error {
				return tx.Commit()
			},
			wantErr:       assert.NoError,
			wantSummaries: []string{"BEGIN", "INSERT INTO audit (action) …", "COMMIT"},
		},
		{
			name: "given rollback, then logs ROLLBACK",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO audit (action) VALUES ('login')").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectRollback()
			},
			finish: func(tx *sql.Tx) error {
				return tx.Rollback()
			},
			wantErr:       assert.NoError,
			wantSummaries: []string{"BEGIN", "INSERT INTO audit (action) …", "ROLLBACK"},
		},
		{
			name: "given commit error, then logs COMMIT with the error",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO audit (action) VALUES ('login')").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit().WillReturnError(assert.AnError)
			},
			finish: func(tx *sql.Tx) error {
				return tx.Commit()
			},
			wantErr:       assert.Error,
			wantSummaries: []string{"BEGIN", "INSERT INTO audit (action) …", "COMMIT"},
			wantLastError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, buf := newTestDB(t)
			tt.mockFn(mock)

			tx, err := db.BeginTx(context.Background(), nil)
			require.NoError(t, err)

			_, err = tx.ExecContext(context.Background(), "INSERT INTO audit (action) VALUES ('login')")
			require.NoError(t, err)

			tt.wantErr(t, tt.finish(tx))

			lines := logLines(t, buf)
			assert.Equal(t, tt.wantSummaries, summaries(lines))
			_, hasError := lines[len(lines)-1]["error"]
			assert.Equal(t, tt.wantLastError, hasError)

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOtelConn_BeginTx_Error(t *testing.T) {
	db, mock, buf := newTestDB(t)
	mock.ExpectBegin().WillReturnError(assert.AnError)

	_, err := db.BeginTx(context.Background(), nil)
	require.Error(t, err)

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "BEGIN", lines[0]["summary"])
	assert.Equal(t, assert.AnError.Error(), lines[0]["error"])
}
