package querylog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments for measured statements.
type metrics struct {
	// Statement latency histogram
	queryDuration metric.Float64Histogram

	// Statements at or above the slow threshold
	slowStatements metric.Int64Counter
}

// newMetrics creates and registers metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.queryDuration, err = meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Duration of database client operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	m.slowStatements, err = meter.Int64Counter(
		"db.client.slow_statements",
		metric.WithDescription("Number of statements that exceeded the slow statement threshold"),
		metric.WithUnit("{statement}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// recordStatement records the duration of a statement and, when slow,
// bumps the slow statement counter.
func (m *metrics) recordStatement(
	ctx context.Context,
	duration time.Duration,
	operation string,
	attrs []attribute.KeyValue,
	slow bool,
	err error,
) {
	if m == nil || m.queryDuration == nil {
		return
	}

	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs, attrs...)

	if operation != "" {
		allAttrs = append(allAttrs, attribute.String("db.operation", operation))
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	allAttrs = append(allAttrs, attribute.String("status", status))

	m.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(allAttrs...))

	if slow && m.slowStatements != nil {
		m.slowStatements.Add(ctx, 1, metric.WithAttributes(allAttrs...))
	}
}
