package sql

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// poolMetrics holds the connection pool instruments of one *sql.DB.
// Statement metrics are recorded by querylog; the pool is only visible
// from *sql.DB.Stats(), after sql.Open() returns.
type poolMetrics struct {
	openConnections metric.Int64ObservableGauge
	idleConnections metric.Int64ObservableGauge
	maxConnections  metric.Int64ObservableGauge
	usedConnections metric.Int64ObservableGauge
	waitCount       metric.Int64ObservableCounter
	waitDuration    metric.Float64ObservableCounter
}

// register creates the pool instruments and a callback that reads
// db.Stats() when metrics are collected.
func (m *poolMetrics) register(
	meter metric.Meter,
	db *sql.DB,
	attrs []attribute.KeyValue,
) error {
	var err error

	m.openConnections, err = meter.Int64ObservableGauge(
		"db.client.connections.open",
		metric.WithDescription("Number of open connections in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.idleConnections, err = meter.Int64ObservableGauge(
		"db.client.connections.idle",
		metric.WithDescription("Number of idle connections in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.maxConnections, err = meter.Int64ObservableGauge(
		"db.client.connections.max",
		metric.WithDescription("Maximum number of connections allowed in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.usedConnections, err = meter.Int64ObservableGauge(
		"db.client.connections.used",
		metric.WithDescription("Number of connections currently in use"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.waitCount, err = meter.Int64ObservableCounter(
		"db.client.connections.wait_count",
		metric.WithDescription("Total number of times waited for a connection"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.waitDuration, err = meter.Float64ObservableCounter(
		"db.client.connections.wait_duration",
		metric.WithDescription("Total time waited for connections in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			stats := db.Stats()
			opt := metric.WithAttributes(attrs...)

			o.ObserveInt64(m.openConnections, int64(stats.OpenConnections), opt)
			o.ObserveInt64(m.idleConnections, int64(stats.Idle), opt)
			o.ObserveInt64(m.maxConnections, int64(stats.MaxOpenConnections), opt)
			o.ObserveInt64(m.usedConnections, int64(stats.InUse), opt)
			o.ObserveInt64(m.waitCount, stats.WaitCount, opt)
			o.ObserveFloat64(m.waitDuration, stats.WaitDuration.Seconds(), opt)

			return nil
		},
		m.openConnections,
		m.idleConnections,
		m.maxConnections,
		m.usedConnections,
		m.waitCount,
		m.waitDuration,
	)

	return err
}

// RecordPoolMetrics registers connection pool metrics for a database.
//
// When db was opened through this package, the db.system, db.name and
// db.instance attributes are detected from its driver. Extra attributes
// are appended to the detected ones.
//
// Example:
//
//	db, _ := querysql.Open("postgres", dsn,
//	    querylog.WithDBSystem("postgresql"),
//	    querylog.WithDBName("mydb"),
//	)
//
//	err := querysql.RecordPoolMetrics(db, otel.GetMeterProvider().Meter("myapp"))
func RecordPoolMetrics(db *sql.DB, meter metric.Meter, attrs ...attribute.KeyValue) error {
	if drv, ok := db.Driver().(*otelDriver); ok && drv.inst != nil {
		attrs = append(drv.inst.BaseAttributes(), attrs...)
	}

	m := &poolMetrics{}
	return m.register(meter, db, attrs)
}
