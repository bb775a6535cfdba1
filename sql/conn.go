package sql

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/kroma-labs/sentinel-querylog/querylog"
)

// Compile-time interface checks.
var (
	_ driver.Conn               = (*otelConn)(nil)
	_ driver.ConnPrepareContext = (*otelConn)(nil)
	_ driver.ConnBeginTx        = (*otelConn)(nil)
	_ driver.ExecerContext      = (*otelConn)(nil)
	_ driver.QueryerContext     = (*otelConn)(nil)
	_ driver.Pinger             = (*otelConn)(nil)
	_ driver.SessionResetter    = (*otelConn)(nil)
	_ driver.Validator          = (*otelConn)(nil)
)

// Statements logged for transaction control.
const (
	beginStatement    = "BEGIN"
	commitStatement   = "COMMIT"
	rollbackStatement = "ROLLBACK"
)

// otelConn wraps a driver.Conn with query logging.
type otelConn struct {
	conn driver.Conn
	inst *querylog.Instrumenter
}

// newOtelConn creates a new instrumented connection.
func newOtelConn(conn driver.Conn, inst *querylog.Instrumenter) *otelConn {
	return &otelConn{
		conn: conn,
		inst: inst,
	}
}

// Prepare implements driver.Conn.
func (c *otelConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return newOtelStmt(stmt, c.inst, query), nil
}

// Close implements driver.Conn.
func (c *otelConn) Close() error {
	return c.conn.Close()
}

// Begin implements driver.Conn.
// Deprecated: Use BeginTx instead. This exists for driver.Conn interface compatibility.
func (c *otelConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// PrepareContext implements driver.ConnPrepareContext.
// Preparing is not logged; the statement is logged each time it runs.
func (c *otelConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var stmt driver.Stmt
	var err error

	if preparer, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = preparer.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}

	if err != nil {
		return nil, err
	}
	return newOtelStmt(stmt, c.inst, query), nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *otelConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	txCtx, ql := c.inst.Start(ctx, beginStatement)
	defer ql.Finish()

	var tx driver.Tx
	var err error

	if beginner, ok := c.conn.(driver.ConnBeginTx); ok {
		tx, err = beginner.BeginTx(txCtx, opts)
	} else {
		tx, err = c.conn.Begin() //nolint:staticcheck // Fallback for older drivers
	}

	if err != nil {
		ql.RecordError(err)
		return nil, err
	}

	return newOtelTx(ctx, tx, c.inst), nil
}

// ExecContext implements driver.ExecerContext.
func (c *otelConn) ExecContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		// Fallback: database/sql prepares and executes through otelStmt
		return nil, driver.ErrSkip
	}

	ctx, ql := c.inst.Start(ctx, query)
	defer ql.Finish()

	result, err := execer.ExecContext(ctx, query, args)
	if err != nil {
		recordError(ql, err)
		return nil, err
	}
	recordRowsAffected(ql, result)
	return result, nil
}

// QueryContext implements driver.QueryerContext.
// The statement is finished when the returned rows are closed, so the
// event counts every row the caller read.
func (c *otelConn) QueryContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		// Fallback: let database/sql handle it
		return nil, driver.ErrSkip
	}

	ctx, ql := c.inst.Start(ctx, query)
	rows, err := queryer.QueryContext(ctx, query, args)
	if err != nil {
		recordError(ql, err)
		ql.Finish()
		return nil, err
	}
	return newOtelRows(rows, ql), nil
}

// Ping implements driver.Pinger. Pings are health checks, not statements,
// and are passed through without logging.
func (c *otelConn) Ping(ctx context.Context) error {
	if pinger, ok := c.conn.(driver.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// ResetSession implements driver.SessionResetter.
func (c *otelConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// IsValid implements driver.Validator.
func (c *otelConn) IsValid() bool {
	if validator, ok := c.conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}

// recordError attaches err to the statement unless database/sql will retry
// the statement through another path.
func recordError(ql *querylog.QueryLogger, err error) {
	if errors.Is(err, driver.ErrSkip) {
		return
	}
	ql.RecordError(err)
}

// recordRowsAffected adds the driver-reported row count, when available.
func recordRowsAffected(ql *querylog.QueryLogger, result driver.Result) {
	if result == nil {
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		ql.IncreaseRowsAffected(uint64(n))
	}
}
