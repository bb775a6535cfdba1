package sql

import (
	"context"
	"database/sql/driver"

	"github.com/kroma-labs/sentinel-querylog/querylog"
)

// Compile-time interface checks.
var (
	_ driver.Stmt             = (*otelStmt)(nil)
	_ driver.StmtExecContext  = (*otelStmt)(nil)
	_ driver.StmtQueryContext = (*otelStmt)(nil)
)

// otelStmt wraps a driver.Stmt with query logging.
type otelStmt struct {
	stmt  driver.Stmt
	inst  *querylog.Instrumenter
	query string
}

// newOtelStmt creates a new instrumented statement.
func newOtelStmt(stmt driver.Stmt, inst *querylog.Instrumenter, query string) *otelStmt {
	return &otelStmt{
		stmt:  stmt,
		inst:  inst,
		query: query,
	}
}

// Close implements driver.Stmt.
func (s *otelStmt) Close() error {
	return s.stmt.Close()
}

// NumInput implements driver.Stmt.
func (s *otelStmt) NumInput() int {
	return s.stmt.NumInput()
}

// Exec implements driver.Stmt.
// Deprecated: Use ExecContext instead. This exists for driver.Stmt interface compatibility.
func (s *otelStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.stmt.Exec(args) //nolint:staticcheck // Required for driver.Stmt interface
}

// Query implements driver.Stmt.
// Deprecated: Use QueryContext instead. This exists for driver.Stmt interface compatibility.
func (s *otelStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.stmt.Query(args) //nolint:staticcheck // Required for driver.Stmt interface
}

// ExecContext implements driver.StmtExecContext.
func (s *otelStmt) ExecContext(
	ctx context.Context,
	args []driver.NamedValue,
) (driver.Result, error) {
	ctx, ql := s.inst.Start(ctx, s.query)
	defer ql.Finish()

	var result driver.Result
	var err error

	if execer, ok := s.stmt.(driver.StmtExecContext); ok {
		result, err = execer.ExecContext(ctx, args)
	} else {
		// Fallback to non-context version
		values := namedValueToValue(args)
		result, err = s.stmt.Exec(values) //nolint:staticcheck // Fallback for older drivers
	}

	if err != nil {
		recordError(ql, err)
		return nil, err
	}

	recordRowsAffected(ql, result)
	return result, nil
}

// QueryContext implements driver.StmtQueryContext.
func (s *otelStmt) QueryContext(
	ctx context.Context,
	args []driver.NamedValue,
) (driver.Rows, error) {
	ctx, ql := s.inst.Start(ctx, s.query)

	var rows driver.Rows
	var err error

	if queryer, ok := s.stmt.(driver.StmtQueryContext); ok {
		rows, err = queryer.QueryContext(ctx, args)
	} else {
		// Fallback to non-context version
		values := namedValueToValue(args)
		rows, err = s.stmt.Query(values) //nolint:staticcheck // Fallback for older drivers
	}

	if err != nil {
		recordError(ql, err)
		ql.Finish()
		return nil, err
	}

	return newOtelRows(rows, ql), nil
}

// namedValueToValue converts NamedValue slice to Value slice.
func namedValueToValue(named []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(named))
	for i, nv := range named {
		values[i] = nv.Value
	}
	return values
}
