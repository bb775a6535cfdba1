package querylog

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher forwards a runtime-selected level to the two logging backends:
// zerolog and the OpenTelemetry log/trace API. Both backends only expose
// fixed-level primitives, so every operation branches over the five active
// levels. This is the only place that knows about the backends' native
// level types; adding a backend only touches this file and Levels.
type Dispatcher struct {
	target string
	log    zerolog.Logger
	tracer trace.Tracer
	events otellog.Logger
}

// NewDispatcher returns a Dispatcher that tags everything with target.
// A nil tracer or events logger turns the OpenTelemetry side off.
func NewDispatcher(target string, log zerolog.Logger, tracer trace.Tracer, events otellog.Logger) *Dispatcher {
	return &Dispatcher{
		target: target,
		log:    log.With().Str("target", target).Logger(),
		tracer: tracer,
		events: events,
	}
}

// Target returns the namespace events are emitted under.
func (d *Dispatcher) Target() string {
	return d.target
}

// LogEnabled reports whether the zerolog backend processes level, honouring
// both the logger's own level and zerolog.GlobalLevel().
func (d *Dispatcher) LogEnabled(level zerolog.Level) bool {
	e := d.logEvent(level)
	if e == nil {
		return false
	}
	enabled := e.Enabled()
	e.Discard()
	return enabled
}

// TraceEnabled reports whether the OpenTelemetry log backend processes sev
// for this target.
func (d *Dispatcher) TraceEnabled(ctx context.Context, sev otellog.Severity) bool {
	if d.events == nil {
		return false
	}
	s, _, ok := traceSeverity(sev)
	if !ok {
		return false
	}
	return d.events.Enabled(ctx, otellog.EnabledParameters{Severity: s, EventName: d.target})
}

// Enabled reports whether either backend processes lv. The backends are
// configured independently, so either one having the level active is enough.
func (d *Dispatcher) Enabled(ctx context.Context, lv Levels) bool {
	return d.LogEnabled(lv.Log) || d.TraceEnabled(ctx, lv.Trace)
}

// OpenRegion starts a span for the duration of an operation. The caller
// must End the returned span exactly once. Callers are expected to check
// Enabled first; OpenRegion itself does not.
func (d *Dispatcher) OpenRegion(
	ctx context.Context,
	sev otellog.Severity,
	name string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	_, text, ok := traceSeverity(sev)
	if !ok || d.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attribute.String("level", text))
	all = append(all, attrs...)

	return d.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...),
	)
}

// Emit writes one record at lv to each backend that has the level active.
func (d *Dispatcher) Emit(ctx context.Context, lv Levels, msg string, attrs ...attribute.KeyValue) {
	if e := d.logEvent(lv.Log); e != nil {
		for _, a := range attrs {
			e = withField(e, a)
		}
		e.Msg(msg)
	}

	if !d.TraceEnabled(ctx, lv.Trace) {
		return
	}
	sev, text, _ := traceSeverity(lv.Trace)

	var r otellog.Record
	now := time.Now()
	r.SetTimestamp(now)
	r.SetObservedTimestamp(now)
	r.SetEventName(d.target)
	r.SetSeverity(sev)
	r.SetSeverityText(text)
	r.SetBody(otellog.StringValue(msg))
	for _, a := range attrs {
		r.AddAttributes(otellog.KeyValue{Key: string(a.Key), Value: otellog.ValueFromAttribute(a.Value)})
	}
	d.events.Emit(ctx, r)
}

// logEvent returns the zerolog event builder for level, or nil when the
// level is not one of the five active levels. The returned event is nil-safe
// and disabled when the logger filters the level out.
func (d *Dispatcher) logEvent(level zerolog.Level) *zerolog.Event {
	switch level {
	case zerolog.ErrorLevel:
		return d.log.Error()
	case zerolog.WarnLevel:
		return d.log.Warn()
	case zerolog.InfoLevel:
		return d.log.Info()
	case zerolog.DebugLevel:
		return d.log.Debug()
	case zerolog.TraceLevel:
		return d.log.Trace()
	}
	return nil
}

// traceSeverity returns the canonical OpenTelemetry severity and its text
// for sev. The otel API accepts 24 severities; only the five base ones are
// valid here.
func traceSeverity(sev otellog.Severity) (otellog.Severity, string, bool) {
	switch sev {
	case otellog.SeverityError:
		return otellog.SeverityError, "ERROR", true
	case otellog.SeverityWarn:
		return otellog.SeverityWarn, "WARN", true
	case otellog.SeverityInfo:
		return otellog.SeverityInfo, "INFO", true
	case otellog.SeverityDebug:
		return otellog.SeverityDebug, "DEBUG", true
	case otellog.SeverityTrace:
		return otellog.SeverityTrace, "TRACE", true
	}
	return otellog.SeverityUndefined, "", false
}

// withField appends a to a zerolog event using the matching typed writer.
func withField(e *zerolog.Event, a attribute.KeyValue) *zerolog.Event {
	key := string(a.Key)
	switch a.Value.Type() {
	case attribute.BOOL:
		return e.Bool(key, a.Value.AsBool())
	case attribute.INT64:
		return e.Int64(key, a.Value.AsInt64())
	case attribute.FLOAT64:
		return e.Float64(key, a.Value.AsFloat64())
	case attribute.STRING:
		return e.Str(key, a.Value.AsString())
	case attribute.STRINGSLICE:
		return e.Strs(key, a.Value.AsStringSlice())
	}
	return e.Str(key, a.Value.Emit())
}
