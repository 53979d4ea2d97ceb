// Package telemetry wires OpenTelemetry tracing: an OTLP/gRPC exporter when
// a collector is configured, a no-op provider otherwise.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// ExporterURL is the OTLP gRPC collector address; empty disables export.
	ExporterURL   string
	SamplingRatio float64
}

type Telemetry struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// New installs the global tracer provider and W3C propagators.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Telemetry, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.ExporterURL == "" {
		logger.Info().Msg("tracing disabled: no exporter url")
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Telemetry{provider: tp, shutdown: func(context.Context) error { return nil }}, nil
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOptions(cfg.ExporterURL)...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRatio))),
	)
	otel.SetTracerProvider(tp)

	logger.Info().
		Str("endpoint", cfg.ExporterURL).
		Float64("sampling_ratio", cfg.SamplingRatio).
		Msg("tracing enabled")

	return &Telemetry{provider: tp, shutdown: tp.Shutdown}, nil
}

// exporterOptions accepts "host:port" or a URL; http:// and grpc:// imply a
// plaintext connection to a local collector.
func exporterOptions(url string) []otlptracegrpc.Option {
	endpoint := url
	insecure := true
	switch {
	case strings.HasPrefix(url, "https://"):
		endpoint = strings.TrimPrefix(url, "https://")
		insecure = false
	case strings.HasPrefix(url, "http://"):
		endpoint = strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "grpc://"):
		endpoint = strings.TrimPrefix(url, "grpc://")
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

func (t *Telemetry) TracerProvider() trace.TracerProvider { return t.provider }

// Shutdown flushes buffered spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}
