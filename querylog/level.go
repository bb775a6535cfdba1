package querylog

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	otellog "go.opentelemetry.io/otel/log"
)

// LevelFilter is a configured verbosity for statement logging.
// LevelOff disables logging entirely; the remaining values are ordered from
// most restrictive (LevelError) to most verbose (LevelTrace).
type LevelFilter int8

const (
	LevelOff LevelFilter = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// String returns the lowercase name of the filter.
func (f LevelFilter) String() string {
	switch f {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	}
	return fmt.Sprintf("LevelFilter(%d)", int8(f))
}

// ParseLevelFilter parses a level name. Matching is case-insensitive.
//
// Example:
//
//	lvl, err := querylog.ParseLevelFilter(os.Getenv("DB_LOG_LEVEL"))
func ParseLevelFilter(s string) (LevelFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "disabled":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	}
	return LevelOff, fmt.Errorf("unknown log level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f LevelFilter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so a LevelFilter can be
// decoded straight from env, YAML or JSON configuration.
func (f *LevelFilter) UnmarshalText(text []byte) error {
	lvl, err := ParseLevelFilter(string(text))
	if err != nil {
		return err
	}
	*f = lvl
	return nil
}

// Levels is the pair of native severities a filter maps to: one for the
// zerolog backend and one for the OpenTelemetry log backend.
type Levels struct {
	Log   zerolog.Level
	Trace otellog.Severity
}

// Levels maps f onto both backends. The second result is false for LevelOff
// and for values outside the defined range.
func (f LevelFilter) Levels() (Levels, bool) {
	switch f {
	case LevelError:
		return Levels{Log: zerolog.ErrorLevel, Trace: otellog.SeverityError}, true
	case LevelWarn:
		return Levels{Log: zerolog.WarnLevel, Trace: otellog.SeverityWarn}, true
	case LevelInfo:
		return Levels{Log: zerolog.InfoLevel, Trace: otellog.SeverityInfo}, true
	case LevelDebug:
		return Levels{Log: zerolog.DebugLevel, Trace: otellog.SeverityDebug}, true
	case LevelTrace:
		return Levels{Log: zerolog.TraceLevel, Trace: otellog.SeverityTrace}, true
	}
	return Levels{}, false
}
