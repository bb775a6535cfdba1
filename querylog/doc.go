// Package querylog measures individual database statements and reports them
// to zerolog and OpenTelemetry at a level chosen at runtime.
//
// # Features
//
//   - One structured event per statement, at a configurable level
//   - Separate level and threshold for slow statements
//   - Optional "db.query" span around the statement, gated by its own level
//   - Two independent backends: zerolog and the OpenTelemetry log API
//   - Short statement summaries plus a formatted full statement
//   - Duration histogram and slow statement counter
//
// # Quick Start
//
//	import "github.com/kroma-labs/sentinel-querylog/querylog"
//
//	inst := querylog.New(
//	    querylog.WithLogger(logger),
//	    querylog.WithLogStatements(querylog.LevelInfo),
//	    querylog.WithLogSlowStatements(querylog.LevelWarn, 100*time.Millisecond),
//	)
//
//	ctx, ql := inst.Start(ctx, query)
//	defer ql.Finish()
//
//	for rows.Next() {
//	    ql.IncrementRowsReturned()
//	}
//
// Most applications do not call Start directly; the sql, sqlx and pgx
// packages of this module drive a QueryLogger for every statement.
//
// # Levels
//
// A LevelFilter (off, error, warn, info, debug, trace) is mapped onto a
// zerolog.Level and an OpenTelemetry log severity. A statement is logged
// when either backend has the level enabled:
//
//	zerolog.SetGlobalLevel(zerolog.InfoLevel)
//	// statements at LevelDebug are dropped by zerolog, but still reach an
//	// OpenTelemetry LoggerProvider that accepts debug records.
//
// # Slow Statements
//
// A statement whose duration is at least the slow threshold is logged at
// the slow statement level with the message
// "slow statement: execution time exceeded alert threshold" and a
// slow_threshold field, so alerts can key on either.
//
// # Event Fields
//
//   - summary: first four words of the statement, with "…" when truncated
//   - db.statement: formatted full statement, empty when summary is complete
//   - rows_affected, rows_returned
//   - elapsed: duration with unit, e.g. "12.5ms"
//   - elapsed_secs: duration in seconds
//   - slow_threshold: only on slow statements
//   - error: only when RecordError was called
package querylog
