package pgx

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lognoop "go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/kroma-labs/sentinel-querylog/querylog"
)

// newTestTracer returns a Tracer logging at info to a buffer.
func newTestTracer(opts ...querylog.Option) (*Tracer, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	all := []querylog.Option{
		querylog.WithLogger(zerolog.New(buf)),
		querylog.WithLoggerProvider(lognoop.NewLoggerProvider()),
		querylog.WithTracerProvider(tracenoop.NewTracerProvider()),
		querylog.WithLogStatements(querylog.LevelInfo),
		querylog.WithLogSlowStatements(querylog.LevelWarn, time.Hour),
		querylog.WithSpanLevel(querylog.LevelOff),
	}
	all = append(all, opts...)
	return NewTracer(all...), buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestTracer_Query(t *testing.T) {
	tests := []struct {
		name             string
		sql              string
		tag              string
		err              error
		wantRowsReturned float64
		wantRowsAffected float64
		wantError        bool
	}{
		{
			name:             "given SELECT tag, then reports rows returned",
			sql:              "SELECT id, name FROM users WHERE active",
			tag:              "SELECT 3",
			wantRowsReturned: 3,
		},
		{
			name:             "given UPDATE tag, then reports rows affected",
			sql:              "UPDATE users SET active = false WHERE id = $1",
			tag:              "UPDATE 2",
			wantRowsAffected: 2,
		},
		{
			name:             "given INSERT tag, then reports rows affected",
			sql:              "INSERT INTO users (name) VALUES ($1)",
			tag:              "INSERT 0 1",
			wantRowsAffected: 1,
		},
		{
			name:      "given error, then reports the error without rows",
			sql:       "SELECT * FROM missing",
			err:       assert.AnError,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, buf := newTestTracer()

			ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: tt.sql})
			assert.Empty(t, buf.String())
			tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{
				CommandTag: pgconn.NewCommandTag(tt.tag),
				Err:        tt.err,
			})

			lines := logLines(t, buf)
			require.Len(t, lines, 1)
			assert.Equal(t, "info", lines[0]["level"])
			assert.Equal(t, tt.wantRowsReturned, lines[0]["rows_returned"])
			assert.Equal(t, tt.wantRowsAffected, lines[0]["rows_affected"])
			_, hasError := lines[0]["error"]
			assert.Equal(t, tt.wantError, hasError)
		})
	}
}

func TestTracer_QueryEndWithoutStart(t *testing.T) {
	tracer, buf := newTestTracer()

	assert.NotPanics(t, func() {
		tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	})
	assert.Empty(t, buf.String())
}

func TestTracer_SlowQuery(t *testing.T) {
	tracer, buf := newTestTracer(querylog.WithLogSlowStatements(querylog.LevelError, 0))

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT pg_sleep(1)"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "0s", lines[0]["slow_threshold"])
}

func TestTracer_Span(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	defer tp.Shutdown(context.Background())

	tracer, _ := newTestTracer(
		querylog.WithTracerProvider(tp),
		querylog.WithSpanLevel(querylog.LevelInfo),
	)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	assert.Len(t, spans.Started(), 1)
	assert.Empty(t, spans.Ended())

	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "db.query", ended[0].Name())
}

func TestTracer_CopyFrom(t *testing.T) {
	tracer, buf := newTestTracer()

	ctx := tracer.TraceCopyFromStart(context.Background(), nil, pgx.TraceCopyFromStartData{
		TableName:   pgx.Identifier{"public", "users"},
		ColumnNames: []string{"id", "name"},
	})
	tracer.TraceCopyFromEnd(ctx, nil, pgx.TraceCopyFromEndData{CommandTag: pgconn.NewCommandTag("COPY 500")})

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, `COPY "public"."users" ("id", "name") …`, lines[0]["summary"])
	assert.EqualValues(t, 500, lines[0]["rows_affected"])
}

func TestNewTracerWithInstrumenter(t *testing.T) {
	inst := querylog.New()

	tracer := NewTracerWithInstrumenter(inst)

	assert.Same(t, inst, tracer.Instrumenter())
}
