package querylog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// spanName is the name of the span opened around each statement.
	spanName = "db.query"

	// slowMessage always contains "slow" so it can be grepped for.
	slowMessage = "slow statement: execution time exceeded alert threshold"

	// statementMessage is the message of events for statements under the
	// slow threshold.
	statementMessage = "statement executed"

	// ellipsis marks a summary that is shorter than its statement.
	ellipsis = " …"
)

// Instrumenter starts QueryLoggers that share one configuration and one
// pair of backends. It is safe for concurrent use; the QueryLoggers it
// returns are not.
type Instrumenter struct {
	cfg      *config
	dispatch *Dispatcher
}

// New creates an Instrumenter.
//
// Example:
//
//	inst := querylog.New(
//	    querylog.WithLogger(logger),
//	    querylog.WithLogStatements(querylog.LevelInfo),
//	    querylog.WithLogSlowStatements(querylog.LevelWarn, 100*time.Millisecond),
//	)
func New(opts ...Option) *Instrumenter {
	cfg := newConfig(opts...)
	return &Instrumenter{
		cfg: cfg,
		dispatch: NewDispatcher(
			Target,
			cfg.Logger,
			cfg.TracerProvider.Tracer(scope),
			cfg.LoggerProvider.Logger(scope),
		),
	}
}

// Dispatcher returns the dispatcher shared by all QueryLoggers of i.
func (i *Instrumenter) Dispatcher() *Dispatcher {
	return i.dispatch
}

// Settings returns the log settings copied into every QueryLogger.
func (i *Instrumenter) Settings() Settings {
	return i.cfg.Settings
}

// BaseAttributes returns db.system, db.name and db.instance, when set.
func (i *Instrumenter) BaseAttributes() []attribute.KeyValue {
	return i.cfg.baseAttributes()
}

// Start begins measuring one statement. When the span level is active on
// either backend, a "db.query" span is opened and the returned context
// carries it; otherwise ctx is returned unchanged.
//
// The caller owns the QueryLogger and must call Finish exactly once, usually
// with defer so it also runs on early returns:
//
//	ctx, ql := inst.Start(ctx, query)
//	defer ql.Finish()
func (i *Instrumenter) Start(ctx context.Context, sql string) (context.Context, *QueryLogger) {
	q := &QueryLogger{
		inst:     i,
		ctx:      ctx,
		sql:      sql,
		settings: i.cfg.Settings,
	}

	if lv, ok := q.settings.SpanLevel.Levels(); ok && i.dispatch.Enabled(ctx, lv) {
		ctx, q.span = i.dispatch.OpenRegion(ctx, lv.Trace, spanName, i.cfg.queryAttributes(sql)...)
	}

	q.start = i.cfg.now()
	return ctx, q
}

// QueryLogger measures a single statement from Start to Finish and emits
// one event describing it. It is owned by one goroutine for its lifetime.
type QueryLogger struct {
	inst     *Instrumenter
	ctx      context.Context
	sql      string
	settings Settings
	start    time.Time
	span     trace.Span
	err      error
	finished bool

	rowsReturned uint64
	rowsAffected uint64
}

// IncrementRowsReturned counts one row read by the caller.
func (q *QueryLogger) IncrementRowsReturned() {
	q.rowsReturned++
}

// AddRowsReturned counts n rows read by the caller, for drivers that only
// report a total.
func (q *QueryLogger) AddRowsReturned(n uint64) {
	q.rowsReturned += n
}

// IncreaseRowsAffected adds n to the number of rows the statement changed.
func (q *QueryLogger) IncreaseRowsAffected(n uint64) {
	q.rowsAffected += n
}

// RecordError marks the statement as failed. The error is recorded on the
// span and attached to the final event.
func (q *QueryLogger) RecordError(err error) {
	if err == nil {
		return
	}
	q.err = err
}

// Finish closes the span, if any, and emits the statement event at the
// statement level or, when the statement took at least the slow threshold,
// at the slow statement level. Calls after the first do nothing.
func (q *QueryLogger) Finish() {
	if q.finished {
		return
	}
	q.finished = true

	// The span must end before the event is emitted so the event is
	// correlated with the parent, not with the statement's own span.
	if span := q.span; span != nil {
		q.span = nil
		span.SetAttributes(
			attribute.Int64("db.rows_affected", int64(q.rowsAffected)),
			attribute.Int64("db.rows_returned", int64(q.rowsReturned)),
		)
		if q.err != nil {
			span.RecordError(q.err)
			span.SetStatus(codes.Error, q.err.Error())
		}
		span.End()
	}

	cfg := q.inst.cfg
	elapsed := cfg.now().Sub(q.start)
	slow := elapsed >= q.settings.SlowStatementsDuration

	cfg.Metrics.recordStatement(q.ctx, elapsed, ExtractOperation(q.sql), cfg.baseAttributes(), slow, q.err)

	lv, ok := q.settings.levelFor(slow).Levels()
	if !ok || !q.inst.dispatch.Enabled(q.ctx, lv) {
		return
	}

	text := cfg.sanitize(q.sql)
	summary := Summarize(text)
	statement := ""
	if summary != text {
		summary += ellipsis
		statement = cfg.format(text)
	}

	attrs := make([]attribute.KeyValue, 0, 9)
	attrs = append(attrs,
		attribute.String("summary", summary),
		attribute.String("db.statement", statement),
		attribute.Int64("rows_affected", int64(q.rowsAffected)),
		attribute.Int64("rows_returned", int64(q.rowsReturned)),
		attribute.String("elapsed", elapsed.String()),
		attribute.Float64("elapsed_secs", elapsed.Seconds()),
	)
	if q.err != nil {
		attrs = append(attrs, attribute.String("error", q.err.Error()))
	}

	msg := statementMessage
	if slow {
		attrs = append(attrs, attribute.String("slow_threshold", q.settings.SlowStatementsDuration.String()))
		msg = slowMessage
	}

	q.inst.dispatch.Emit(q.ctx, lv, msg, attrs...)
}

// sanitize applies the configured sanitizer, if any.
func (cfg *config) sanitize(query string) string {
	if cfg.QuerySanitizer == nil {
		return query
	}
	return cfg.QuerySanitizer(query)
}

// format applies the configured statement formatter, if any.
func (cfg *config) format(query string) string {
	if cfg.Formatter == nil {
		return query
	}
	return cfg.Formatter(query)
}

// baseAttributes returns the base attributes for all spans and metrics.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if cfg.DBSystem != "" {
		attrs = append(attrs, attribute.String("db.system", cfg.DBSystem))
	}
	if cfg.DBName != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.DBName))
	}
	if cfg.InstanceName != "" {
		attrs = append(attrs, attribute.String("db.instance", cfg.InstanceName))
	}
	return attrs
}

// queryAttributes returns attributes for statement spans.
func (cfg *config) queryAttributes(query string) []attribute.KeyValue {
	attrs := cfg.baseAttributes()

	if !cfg.DisableQuery && query != "" {
		attrs = append(attrs, attribute.String("db.statement", cfg.sanitize(query)))
	}

	if op := ExtractOperation(query); op != "" {
		attrs = append(attrs, attribute.String("db.operation", op))
	}

	return attrs
}
