package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

func TestSetupNone(t *testing.T) {
	shutdown, err := Setup(config.TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupUnknown(t *testing.T) {
	_, err := Setup(config.TracingConfig{Exporter: "zipkin"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestSetupStdoutExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := SetupWithWriter(config.TracingConfig{Exporter: "stdout", ServiceName: "blackgpt-test"}, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "correlation.correlate")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "correlation.correlate")
	assert.Contains(t, buf.String(), "blackgpt-test")
}
