// Package tracing configures OpenTelemetry trace export over OTLP/gRPC.
package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/duration"
)

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(ctx context.Context) error

// Options configures Setup.
type Options struct {
	// Endpoint is the OTLP gRPC collector, e.g. "localhost:4317". Empty
	// disables export.
	Endpoint string

	// ServiceName defaults to the tool name.
	ServiceName string

	// Secure enables TLS to the collector.
	Secure bool

	// Headers are sent with every export request.
	Headers map[string]string
}

// Setup installs a global tracer provider exporting to opts.Endpoint and
// returns a tracer for the run. With no endpoint the global no-op
// provider is left in place and the returned shutdown does nothing.
func Setup(ctx context.Context, opts Options) (trace.Tracer, ShutdownFunc, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.Endpoint == "" {
		return otel.Tracer(opts.ServiceName), func(context.Context) error { return nil }, nil
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
	}
	if !opts.Secure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(ctx, duration.TelemetryConnect)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: exporter %s: %w", opts.Endpoint, err)
	}

	tp := NewProvider(sdktrace.WithBatcher(exporter), opts.ServiceName)
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, duration.TelemetryShutdown)
		defer cancel()
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}
	return tp.Tracer(opts.ServiceName), shutdown, nil
}

// NewProvider builds a provider with the service resource and an
// always-on sampler around the given span processor option.
func NewProvider(processor sdktrace.TracerProviderOption, serviceName string) *sdktrace.TracerProvider {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "aggregator"),
	)
	return sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
}
