// Package pgx connects jackc/pgx/v5 to querylog.
//
// Tracer implements pgx.QueryTracer and pgx.CopyFromTracer: every query
// and CopyFrom is measured by a querylog.QueryLogger and reported with the
// row count from its command tag. Logger implements tracelog.Logger and
// routes pgx's own log output through a querylog.Dispatcher.
//
// Usage:
//
//	cfg, _ := pgx.ParseConfig(dsn)
//	cfg.Tracer = querypgx.NewTracer(
//	    querylog.WithDBSystem("postgresql"),
//	    querylog.WithLogSlowStatements(querylog.LevelWarn, 200*time.Millisecond),
//	)
//	conn, _ := pgx.ConnectConfig(ctx, cfg)
package pgx

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kroma-labs/sentinel-querylog/querylog"
)

// Compile-time interface checks.
var (
	_ pgx.QueryTracer    = (*Tracer)(nil)
	_ pgx.CopyFromTracer = (*Tracer)(nil)
)

type queryLoggerKey struct{}

// Tracer measures pgx queries with querylog.
type Tracer struct {
	inst *querylog.Instrumenter
}

// NewTracer creates a Tracer with its own Instrumenter.
func NewTracer(opts ...querylog.Option) *Tracer {
	return NewTracerWithInstrumenter(querylog.New(opts...))
}

// NewTracerWithInstrumenter creates a Tracer that shares inst, for example
// with a database/sql wrapper in the same process.
func NewTracerWithInstrumenter(inst *querylog.Instrumenter) *Tracer {
	return &Tracer{inst: inst}
}

// Instrumenter returns the Instrumenter the tracer starts QueryLoggers from.
func (t *Tracer) Instrumenter() *querylog.Instrumenter {
	return t.inst
}

// TraceQueryStart implements pgx.QueryTracer.
func (t *Tracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	return t.start(ctx, data.SQL)
}

// TraceQueryEnd implements pgx.QueryTracer. pgx calls it once the result
// has been fully read or the rows were closed.
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	t.end(ctx, data.CommandTag, data.Err)
}

// TraceCopyFromStart implements pgx.CopyFromTracer.
func (t *Tracer) TraceCopyFromStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceCopyFromStartData,
) context.Context {
	return t.start(ctx, copyStatement(data.TableName, data.ColumnNames))
}

// TraceCopyFromEnd implements pgx.CopyFromTracer.
func (t *Tracer) TraceCopyFromEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceCopyFromEndData) {
	t.end(ctx, data.CommandTag, data.Err)
}

func (t *Tracer) start(ctx context.Context, sql string) context.Context {
	ctx, ql := t.inst.Start(ctx, sql)
	return context.WithValue(ctx, queryLoggerKey{}, ql)
}

func (t *Tracer) end(ctx context.Context, tag pgconn.CommandTag, err error) {
	ql, ok := ctx.Value(queryLoggerKey{}).(*querylog.QueryLogger)
	if !ok {
		return
	}

	recordCommandTag(ql, tag)
	ql.RecordError(err)
	ql.Finish()
}

// recordCommandTag reports a SELECT's row count as rows returned and any
// other statement's as rows affected.
func recordCommandTag(ql *querylog.QueryLogger, tag pgconn.CommandTag) {
	n := tag.RowsAffected()
	if n <= 0 {
		return
	}
	if tag.Select() {
		ql.AddRowsReturned(uint64(n))
		return
	}
	ql.IncreaseRowsAffected(uint64(n))
}

// copyStatement renders the statement pgx sends for CopyFrom.
func copyStatement(table pgx.Identifier, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return "COPY " + table.Sanitize() + " (" + strings.Join(quoted, ", ") + ") FROM STDIN BINARY"
}
