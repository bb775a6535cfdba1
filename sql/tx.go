package sql

import (
	"context"
	"database/sql/driver"

	"github.com/kroma-labs/sentinel-querylog/querylog"
)

// Compile-time interface check.
var _ driver.Tx = (*otelTx)(nil)

// otelTx wraps a driver.Tx so COMMIT and ROLLBACK are logged like any
// other statement.
type otelTx struct {
	ctx  context.Context
	tx   driver.Tx
	inst *querylog.Instrumenter
}

// newOtelTx creates a new instrumented transaction. ctx is the context
// BeginTx was called with; driver.Tx has no context of its own.
func newOtelTx(ctx context.Context, tx driver.Tx, inst *querylog.Instrumenter) *otelTx {
	return &otelTx{
		ctx:  ctx,
		tx:   tx,
		inst: inst,
	}
}

// Commit implements driver.Tx.
func (t *otelTx) Commit() error {
	return t.finish(commitStatement, t.tx.Commit)
}

// Rollback implements driver.Tx.
func (t *otelTx) Rollback() error {
	return t.finish(rollbackStatement, t.tx.Rollback)
}

func (t *otelTx) finish(statement string, fn func() error) error {
	_, ql := t.inst.Start(t.ctx, statement)
	defer ql.Finish()

	err := fn()
	ql.RecordError(err)
	return err
}
