package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/kroma-labs/sentinel-querylog/example/sql/internal/config"
)

// Providers holds the OpenTelemetry providers installed by Setup.
// Statement events reach the collector through LoggerProvider and
// statement spans through the global tracer provider.
type Providers struct {
	LoggerProvider otellog.LoggerProvider

	shutdown []func(context.Context) error
}

// Shutdown flushes and stops every provider, in reverse setup order.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, p.shutdown[i](ctx))
	}
	return errors.Join(errs...)
}

// Setup installs OTLP trace and log exporters, a Prometheus metrics reader
// and the /metrics handler. On error, providers created so far are shut down.
func Setup(ctx context.Context) (*Providers, error) {
	p := &Providers{}
	fail := func(err error) (*Providers, error) {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Spans opened around statements (span level) go to Tempo over gRPC.
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(config.OTLPEndpoint),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to create trace exporter: %w", err))
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	p.shutdown = append(p.shutdown, tp.Shutdown)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Statement events are also exported as OTLP log records, next to the
	// zerolog console output.
	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithInsecure(),
		otlploggrpc.WithEndpoint(config.OTLPEndpoint),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to create log exporter: %w", err))
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	p.shutdown = append(p.shutdown, lp.Shutdown)
	global.SetLoggerProvider(lp)
	p.LoggerProvider = lp

	// Statement duration and pool metrics are scraped from /metrics.
	promExporter, err := prometheus.New()
	if err != nil {
		return fail(fmt.Errorf("failed to create prometheus exporter: %w", err))
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(promExporter),
		metric.WithResource(res),
	)
	p.shutdown = append(p.shutdown, mp.Shutdown)
	otel.SetMeterProvider(mp)
	http.Handle("/metrics", promhttp.Handler())

	return p, nil
}
