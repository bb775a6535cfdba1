package querylog

import (
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	// This identifies the library in traces, metrics and log records.
	scope = "github.com/kroma-labs/sentinel-querylog/querylog"

	// Target is the namespace every statement event is emitted under.
	// It is the otel log event name and the zerolog "target" field.
	Target = "db.query"
)

// config holds the configuration for instrumentation.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// LoggerProvider is the OpenTelemetry log provider used as the second
	// logging backend. If not set, uses global.GetLoggerProvider().
	LoggerProvider otellog.LoggerProvider

	// Logger is the zerolog backend.
	// If not set, uses the global zerolog logger from github.com/rs/zerolog/log.
	Logger zerolog.Logger

	// Metrics holds the metric instruments.
	Metrics *metrics

	// Settings selects statement, slow statement and span levels.
	Settings Settings

	// DBSystem identifies the database management system (DBMS) product.
	// Examples: "postgresql", "mysql", "sqlite"
	DBSystem string

	// DBName is the name of the database being accessed.
	DBName string

	// InstanceName identifies a specific database connection instance,
	// such as "primary" or "replica".
	InstanceName string

	// QuerySanitizer sanitizes SQL before it is summarized, formatted or
	// attached to spans. If nil, statements are used as-is.
	QuerySanitizer func(query string) string

	// Formatter lays out the full statement attached to events.
	// Defaults to FormatStatement.
	Formatter func(query string) string

	// DisableQuery disables recording of SQL on spans.
	DisableQuery bool

	// now is the clock used to measure statements.
	now func() time.Time
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		LoggerProvider: global.GetLoggerProvider(),
		Logger:         zlog.Logger,
		Settings:       DefaultSettings(),
		Formatter:      FormatStatement,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	// A nil provider falls back to the global one.
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.LoggerProvider == nil {
		cfg.LoggerProvider = global.GetLoggerProvider()
	}

	// Initialize metrics (ignore errors, will just be nil if fails)
	cfg.Metrics, _ = newMetrics(cfg.MeterProvider.Meter(scope))

	return cfg
}

// Option configures the instrumentation.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called or nil, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// If not called or nil, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithLoggerProvider sets the OpenTelemetry log provider.
// If not called or nil, the global provider from global.GetLoggerProvider() is used.
//
// Example:
//
//	lp := sdklog.NewLoggerProvider(...)
//	inst := querylog.New(querylog.WithLoggerProvider(lp))
func WithLoggerProvider(lp otellog.LoggerProvider) Option {
	return func(cfg *config) {
		cfg.LoggerProvider = lp
	}
}

// WithLogger sets the zerolog backend.
//
// Example:
//
//	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
//	inst := querylog.New(querylog.WithLogger(logger))
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = l
	}
}

// WithSettings replaces all log settings at once.
func WithSettings(s Settings) Option {
	return func(cfg *config) {
		cfg.Settings = s
	}
}

// WithLogStatements sets the level for statements that are not slow.
func WithLogStatements(level LevelFilter) Option {
	return func(cfg *config) {
		cfg.Settings = cfg.Settings.LogStatements(level)
	}
}

// WithLogSlowStatements sets the level and threshold for slow statements.
//
// Example:
//
//	inst := querylog.New(
//	    querylog.WithLogSlowStatements(querylog.LevelWarn, 200*time.Millisecond),
//	)
func WithLogSlowStatements(level LevelFilter, d time.Duration) Option {
	return func(cfg *config) {
		cfg.Settings = cfg.Settings.LogSlowStatements(level, d)
	}
}

// WithDisableStatementLogging turns off statement and slow statement events.
// Spans are still opened according to the span level.
func WithDisableStatementLogging() Option {
	return func(cfg *config) {
		cfg.Settings = cfg.Settings.DisableStatementLogging()
	}
}

// WithSpanLevel sets the level that gates the per-statement span.
func WithSpanLevel(level LevelFilter) Option {
	return func(cfg *config) {
		cfg.Settings = cfg.Settings.WithSpanLevel(level)
	}
}

// WithDBSystem sets the database system identifier (DBMS product).
// This is added as the "db.system" attribute on spans and metrics.
func WithDBSystem(system string) Option {
	return func(cfg *config) {
		cfg.DBSystem = system
	}
}

// WithDBName sets the database name being accessed.
// This is added as the "db.name" attribute on spans and metrics.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithInstanceName sets an identifier for this specific database connection.
// This is added as the "db.instance" attribute on spans and metrics.
//
// Use this to distinguish between multiple connections to the SAME database,
// such as primary/replica setups or read/write splits.
func WithInstanceName(name string) Option {
	return func(cfg *config) {
		cfg.InstanceName = name
	}
}

// WithQuerySanitizer sets a custom query sanitizer function.
// The sanitizer runs before summarizing and formatting, so neither the
// event nor the span sees raw literals.
//
// Example:
//
//	inst := querylog.New(
//	    querylog.WithQuerySanitizer(querylog.DefaultQuerySanitizer),
//	)
//	// Query: "SELECT * FROM users WHERE id = 123"
//	// Recorded as: "SELECT * FROM users WHERE id = ?"
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithStatementFormatter sets the function that lays out the full statement
// attached to events when it is longer than its summary. Pass nil to attach
// the statement unformatted.
func WithStatementFormatter(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.Formatter = fn
	}
}

// WithDisableQuery disables recording of SQL on spans entirely.
// The "db.operation" attribute is still recorded.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}
