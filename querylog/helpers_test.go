package querylog

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordingLogger is an OpenTelemetry log.Logger that keeps every record
// at or above minSeverity. A zero minSeverity disables it.
type recordingLogger struct {
	embedded.Logger

	mu          sync.Mutex
	minSeverity otellog.Severity
	records     []otellog.Record

	// onEmit, when set, runs before a record is stored.
	onEmit func()
}

func (l *recordingLogger) Enabled(_ context.Context, p otellog.EnabledParameters) bool {
	return l.minSeverity != otellog.SeverityUndefined && p.Severity >= l.minSeverity
}

func (l *recordingLogger) Emit(_ context.Context, r otellog.Record) {
	if l.onEmit != nil {
		l.onEmit()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r.Clone())
}

func (l *recordingLogger) Records() []otellog.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]otellog.Record(nil), l.records...)
}

// recordingProvider hands out a single recordingLogger.
type recordingProvider struct {
	embedded.LoggerProvider

	logger *recordingLogger
}

func (p *recordingProvider) Logger(string, ...otellog.LoggerOption) otellog.Logger {
	return p.logger
}

// fakeClock returns a fixed time that tests move forward explicitly.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// withClock replaces the clock used to time statements.
func withClock(fn func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = fn
	}
}

// harness wires an Instrumenter to in-memory backends.
type harness struct {
	inst   *Instrumenter
	buf    *bytes.Buffer
	spans  *tracetest.SpanRecorder
	events *recordingLogger
	clock  *fakeClock
}

// newHarness builds an Instrumenter whose zerolog backend accepts logLevel
// and whose otel backend accepts records at or above traceSeverity.
func newHarness(
	t *testing.T,
	logLevel zerolog.Level,
	traceSeverity otellog.Severity,
	opts ...Option,
) *harness {
	t.Helper()

	h := &harness{
		buf:    &bytes.Buffer{},
		spans:  tracetest.NewSpanRecorder(),
		events: &recordingLogger{minSeverity: traceSeverity},
		clock:  &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	all := []Option{
		WithLogger(zerolog.New(h.buf).Level(logLevel)),
		WithTracerProvider(tp),
		WithLoggerProvider(&recordingProvider{logger: h.events}),
		withClock(h.clock.Now),
	}
	all = append(all, opts...)
	h.inst = New(all...)
	return h
}

// lines decodes every JSON line zerolog has written so far.
func (h *harness) lines(t *testing.T) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(h.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

// recordAttrs flattens an otel log record's attributes into a map.
func recordAttrs(r otellog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value, r.AttributesLen())
	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}
