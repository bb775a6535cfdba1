package querylog

import "time"

// Default settings applied by DefaultSettings.
const (
	DefaultStatementsLevel        = LevelDebug
	DefaultSlowStatementsLevel    = LevelWarn
	DefaultSlowStatementsDuration = time.Second
	DefaultSpanLevel              = LevelDebug
)

// Settings controls which statements are logged and at what level.
// A Settings value is copied into every QueryLogger and never mutated
// afterwards.
type Settings struct {
	// StatementsLevel is used for statements that finish under
	// SlowStatementsDuration.
	StatementsLevel LevelFilter `json:"statements_level" yaml:"statements_level"`

	// SlowStatementsLevel is used for statements that take at least
	// SlowStatementsDuration.
	SlowStatementsLevel LevelFilter `json:"slow_statements_level" yaml:"slow_statements_level"`

	// SlowStatementsDuration is the alert threshold for slow statements.
	SlowStatementsDuration time.Duration `json:"slow_statements_duration" yaml:"slow_statements_duration"`

	// SpanLevel gates the "db.query" span opened for the statement's duration.
	SpanLevel LevelFilter `json:"span_level" yaml:"span_level"`
}

// DefaultSettings returns settings that log every statement at debug, slow
// statements (one second or more) at warn, and open spans at debug.
func DefaultSettings() Settings {
	return Settings{
		StatementsLevel:        DefaultStatementsLevel,
		SlowStatementsLevel:    DefaultSlowStatementsLevel,
		SlowStatementsDuration: DefaultSlowStatementsDuration,
		SpanLevel:              DefaultSpanLevel,
	}
}

// LogStatements returns a copy of s that logs statements at level.
func (s Settings) LogStatements(level LevelFilter) Settings {
	s.StatementsLevel = level
	return s
}

// LogSlowStatements returns a copy of s that logs statements taking at least
// d at level.
func (s Settings) LogSlowStatements(level LevelFilter, d time.Duration) Settings {
	s.SlowStatementsLevel = level
	s.SlowStatementsDuration = d
	return s
}

// DisableStatementLogging returns a copy of s with both statement levels off.
// Spans are unaffected.
func (s Settings) DisableStatementLogging() Settings {
	s.StatementsLevel = LevelOff
	s.SlowStatementsLevel = LevelOff
	return s
}

// WithSpanLevel returns a copy of s that opens spans at level.
func (s Settings) WithSpanLevel(level LevelFilter) Settings {
	s.SpanLevel = level
	return s
}

// levelFor picks the filter for a statement by its slow classification.
func (s Settings) levelFor(slow bool) LevelFilter {
	if slow {
		return s.SlowStatementsLevel
	}
	return s.StatementsLevel
}
