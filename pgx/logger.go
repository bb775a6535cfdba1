package pgx

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kroma-labs/sentinel-querylog/querylog"
)

// Compile-time interface check.
var _ tracelog.Logger = (*Logger)(nil)

// Logger adapts a querylog.Dispatcher to tracelog.Logger, so the lines pgx
// logs itself (connect, prepare, batch, notices) reach the same backends
// as statement events.
//
// Example:
//
//	cfg.Tracer = &tracelog.TraceLog{
//	    Logger:   querypgx.NewLogger(inst.Dispatcher()),
//	    LogLevel: tracelog.LogLevelInfo,
//	}
type Logger struct {
	dispatch *querylog.Dispatcher
}

// NewLogger returns a Logger writing through d.
func NewLogger(d *querylog.Dispatcher) *Logger {
	return &Logger{dispatch: d}
}

// Log implements tracelog.Logger.
func (l *Logger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	lv, ok := levelFilter(level).Levels()
	if !ok || !l.dispatch.Enabled(ctx, lv) {
		return
	}
	l.dispatch.Emit(ctx, lv, msg, attributes(data)...)
}

// levelFilter maps pgx log levels onto querylog levels. LogLevelNone and
// unknown levels map to LevelOff.
func levelFilter(level tracelog.LogLevel) querylog.LevelFilter {
	switch level {
	case tracelog.LogLevelError:
		return querylog.LevelError
	case tracelog.LogLevelWarn:
		return querylog.LevelWarn
	case tracelog.LogLevelInfo:
		return querylog.LevelInfo
	case tracelog.LogLevelDebug:
		return querylog.LevelDebug
	case tracelog.LogLevelTrace:
		return querylog.LevelTrace
	}
	return querylog.LevelOff
}

// attributes converts pgx log data to attributes sorted by key.
func attributes(data map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attributeOf(k, data[k]))
	}
	return attrs
}

func attributeOf(key string, v any) attribute.KeyValue {
	switch v := v.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int32:
		return attribute.Int64(key, int64(v))
	case int64:
		return attribute.Int64(key, v)
	case uint32:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	case time.Duration:
		return attribute.String(key, v.String())
	case error:
		return attribute.String(key, v.Error())
	case fmt.Stringer:
		return attribute.String(key, v.String())
	case nil:
		return attribute.String(key, "")
	}
	return attribute.String(key, fmt.Sprint(v))
}
