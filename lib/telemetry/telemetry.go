// Package telemetry sets up tracing for the crawl and feature batches.
// Spans are exported over OTLP HTTP when OTEL_EXPORTER_OTLP_ENDPOINT is
// set; otherwise the tracer provider stays local so batch runs work
// offline.
package telemetry

import (
	"context"
	"os"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Telemetry struct {
	provider *trace.TracerProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func Setup(ctx context.Context, serviceName string) (Telemetry, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return Telemetry{}, err
	}

	opts := []trace.TracerProviderOption{trace.WithResource(res)}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		exporter, err := otlptracehttp.New(ctx)
		if err != nil {
			return Telemetry{}, err
		}
		opts = append(opts, trace.WithBatcher(exporter))
	}

	provider := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	return Telemetry{provider: provider}, nil
}

var setupTestEnvironments = map[string]bool{}

// SetupForTesting installs a local tracer provider once per named test
// environment.
func SetupForTesting(t testing.TB, serviceName string) func() {
	if setupTestEnvironments[serviceName] {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	tel, err := Setup(context.Background(), serviceName)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}
