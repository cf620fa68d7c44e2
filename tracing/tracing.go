// Package tracing installs the global OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

var ErrUnknownExporter = errors.New("unknown trace exporter")

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

// Setup installs a provider for cfg.Exporter. "none" leaves the global no-op
// provider in place; spans are still created but never exported.
func Setup(cfg config.TracingConfig) (ShutdownFunc, error) {
	return SetupWithWriter(cfg, os.Stdout)
}

// SetupWithWriter is Setup with the stdout exporter writing to w.
func SetupWithWriter(cfg config.TracingConfig, w io.Writer) (ShutdownFunc, error) {
	switch cfg.Exporter {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "blackgpt"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
