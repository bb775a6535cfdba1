package sql

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	json "github.com/goccy/go-json"
	"github.com/kroma-labs/sentinel-querylog/querylog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	lognoop "go.opentelemetry.io/otel/log/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// newTestDB opens an instrumented *sql.DB on top of a sqlmock connection.
// Statements are logged at info to the returned buffer; spans and otel
// log records go to no-op providers unless opts override them.
func newTestDB(t *testing.T, opts ...querylog.Option) (*sql.DB, sqlmock.Sqlmock, *bytes.Buffer) {
	t.Helper()

	dsn := "querylog_" + strings.ReplaceAll(t.Name(), "/", "_")
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	buf := &bytes.Buffer{}
	all := []querylog.Option{
		querylog.WithLogger(zerolog.New(buf)),
		querylog.WithLoggerProvider(lognoop.NewLoggerProvider()),
		querylog.WithTracerProvider(tracenoop.NewTracerProvider()),
		querylog.WithLogStatements(querylog.LevelInfo),
		querylog.WithSpanLevel(querylog.LevelOff),
	}
	all = append(all, opts...)

	wrapped := WrapDriver(mockDB.Driver(), all...)
	connector, err := wrapped.(driver.DriverContext).OpenConnector(dsn)
	require.NoError(t, err)

	db := sql.OpenDB(connector)
	t.Cleanup(func() { _ = db.Close() })

	return db, mock, buf
}

// logLines decodes every JSON line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

// summaries returns the summary field of every line.
func summaries(lines []map[string]any) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		s, _ := l["summary"].(string)
		out = append(out, s)
	}
	return out
}

// testDriver is a driver.Driver without DriverContext.
type testDriver struct {
	conn    driver.Conn
	openErr error
}

func (d *testDriver) Open(_ string) (driver.Conn, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.conn, nil
}

// testConn implements only driver.Conn.
type testConn struct {
	closed bool
}

func (c *testConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *testConn) Close() error                        { c.closed = true; return nil }
func (c *testConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }
