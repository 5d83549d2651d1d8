package telemetry_test

import (
	"context"
	"testing"

	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "invoice-service-test",
	}

	providers, err := telemetry.Setup(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, providers.Tracer.IsEnabled())
	assert.False(t, providers.Logs.IsEnabled())
	assert.NotNil(t, providers.Tracer.Tracer("test"))
	assert.NotNil(t, providers.Meter.Meter("test"))

	core := providers.Logs.Core(zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel), "disabled provider must yield a no-op core")

	assert.NoError(t, providers.Shutdown(ctx))
}

func TestConfigFrom(t *testing.T) {
	cfg := telemetry.ConfigFrom(config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.5,
		ServiceName:       "svc",
		Insecure:          true,
	})

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel:4317", cfg.CollectorEndpoint)
	assert.Equal(t, 0.5, cfg.SamplingRatio)
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
}
