package querylog

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	t.Run("given valid meter, then creates both instruments", func(t *testing.T) {
		mp := sdkmetric.NewMeterProvider()
		defer mp.Shutdown(context.Background())

		m, err := newMetrics(mp.Meter("test"))

		require.NoError(t, err)
		require.NotNil(t, m)
		assert.NotNil(t, m.queryDuration)
		assert.NotNil(t, m.slowStatements)
	})
}

// collect returns every metric the reader has seen, keyed by name.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecordStatement(t *testing.T) {
	type args struct {
		duration  time.Duration
		operation string
		attrs     []attribute.KeyValue
		slow      bool
		err       error
	}

	tests := []struct {
		name       string
		args       args
		wantStatus string
		wantSlow   bool
	}{
		{
			name: "given successful fast statement, then records duration with ok status",
			args: args{
				duration:  10 * time.Millisecond,
				operation: "SELECT",
				attrs:     []attribute.KeyValue{attribute.String("db.system", "postgresql")},
			},
			wantStatus: "ok",
		},
		{
			name: "given failed statement, then records duration with error status",
			args: args{
				duration:  20 * time.Millisecond,
				operation: "INSERT",
				err:       assert.AnError,
			},
			wantStatus: "error",
		},
		{
			name: "given slow statement, then also counts it as slow",
			args: args{
				duration:  2 * time.Second,
				operation: "UPDATE",
				slow:      true,
			},
			wantStatus: "ok",
			wantSlow:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer mp.Shutdown(context.Background())

			m, err := newMetrics(mp.Meter("test"))
			require.NoError(t, err)

			m.recordStatement(
				context.Background(),
				tt.args.duration,
				tt.args.operation,
				tt.args.attrs,
				tt.args.slow,
				tt.args.err,
			)

			got := collect(t, reader)

			hist, ok := got["db.client.operation.duration"].Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)
			dp := hist.DataPoints[0]
			assert.Equal(t, uint64(1), dp.Count)
			assert.InDelta(t, tt.args.duration.Seconds(), dp.Sum, 1e-9)

			status, ok := dp.Attributes.Value("status")
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, status.AsString())
			op, ok := dp.Attributes.Value("db.operation")
			require.True(t, ok)
			assert.Equal(t, tt.args.operation, op.AsString())

			slow, ok := got["db.client.slow_statements"]
			if !tt.wantSlow {
				assert.False(t, ok)
				return
			}
			sum, ok := slow.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(1), sum.DataPoints[0].Value)
		})
	}
}

func TestRecordStatement_NilMetrics(t *testing.T) {
	t.Run("given nil metrics, then does not panic", func(t *testing.T) {
		var m *metrics

		assert.NotPanics(t, func() {
			m.recordStatement(context.Background(), time.Second, "SELECT", nil, true, nil)
		})
	})

	t.Run("given nil histogram, then does not panic", func(t *testing.T) {
		m := &metrics{}

		assert.NotPanics(t, func() {
			m.recordStatement(context.Background(), time.Second, "SELECT", nil, true, nil)
		})
	})
}

func TestQueryLogger_RecordsMetricsWhenLoggingIsOff(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	h := newHarness(t, zerolog.Disabled, otellog.SeverityUndefined,
		WithMeterProvider(mp),
		WithDisableStatementLogging(),
		WithLogSlowStatements(LevelOff, 50*time.Millisecond),
		WithDBSystem("postgresql"),
	)

	_, ql := h.inst.Start(context.Background(), "DELETE FROM sessions WHERE expired")
	h.clock.Advance(80 * time.Millisecond)
	ql.Finish()

	got := collect(t, reader)
	hist, ok := got["db.client.operation.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	system, ok := hist.DataPoints[0].Attributes.Value("db.system")
	require.True(t, ok)
	assert.Equal(t, "postgresql", system.AsString())

	assert.Contains(t, got, "db.client.slow_statements")
	assert.Empty(t, h.lines(t))
}
