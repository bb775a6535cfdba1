package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq" // Register postgres driver
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"

	"github.com/kroma-labs/sentinel-querylog/example/sql/internal/config"
	"github.com/kroma-labs/sentinel-querylog/querylog"
	querysql "github.com/kroma-labs/sentinel-querylog/sql"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// New creates a new database connection whose statements are logged to
// logger and exported as OpenTelemetry log records through lp.
func New(
	_ context.Context,
	logger zerolog.Logger,
	lp otellog.LoggerProvider,
	logging config.Logging,
) (*DB, error) {
	db, err := querysql.Open("postgres", config.DefaultDSN,
		querylog.WithLogger(logger),
		querylog.WithLoggerProvider(lp),
		querylog.WithSettings(logging.Settings()),
		querylog.WithDBSystem(config.DefaultDBSystem),
		querylog.WithDBName(config.DefaultDBName),
		querylog.WithInstanceName(config.DefaultInstance),
	)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.DefaultMaxOpen)
	db.SetMaxIdleConns(config.DefaultMaxIdle)
	db.SetConnMaxLifetime(time.Duration(config.DefaultMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(config.DefaultMaxIdleTime) * time.Second)

	// db.system, db.name and db.instance are detected from the driver.
	err = querysql.RecordPoolMetrics(db, otel.GetMeterProvider().Meter("example-app"))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to register pool metrics")
	}

	return &DB{DB: db, log: logger}, nil
}
