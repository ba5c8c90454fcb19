package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_EmptyEndpointIsNoop(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Init(context.Background(), Config{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider(), "global tracer provider replaced")
}

func TestInit_InstallsSDKProviders(t *testing.T) {
	// Exporters connect lazily, so Init succeeds without a collector.
	shutdown, err := Init(context.Background(), Config{
		Endpoint:       "127.0.0.1:4318",
		Version:        "test",
		Insecure:       true,
		MetricInterval: time.Hour,
	})
	require.NoError(t, err)

	_, isTP := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, isMP := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, isTP, "tracer provider is %T", otel.GetTracerProvider())
	assert.True(t, isMP, "meter provider is %T", otel.GetMeterProvider())

	// Nothing was recorded, so there is nothing to push on shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
