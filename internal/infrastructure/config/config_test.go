package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	keys := []string{
		"INV_APP_NAME", "INV_APP_ENV", "INV_APP_PORT",
		"INV_DATABASE_DRIVER", "INV_DATABASE_HOST", "INV_DATABASE_PORT", "INV_DATABASE_PASSWORD",
		"INV_DATABASE_MAX_OPEN_CONNS", "INV_DATABASE_MAX_IDLE_CONNS",
		"INV_AUTH_USER_API_KEY", "INV_AUTH_ADMIN_API_KEY",
		"INV_QUEUE_DRIVER", "INV_QUEUE_CONCURRENCY", "INV_QUEUE_REDIS_STREAM",
		"INV_INVOICE_ADMIN_DEFAULT_FEE", "INV_INVOICE_DEFAULT_TAX_RATE", "INV_INVOICE_DUE_DAYS",
		"INV_TELEMETRY_SAMPLING_RATIO",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "invoice-service", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "memory", cfg.Queue.Driver)
		assert.Equal(t, 4, cfg.Queue.Concurrency)
		assert.Equal(t, 2*time.Second, cfg.Queue.RedisBlock)
		assert.Equal(t, "invoices:requests:dead", cfg.Queue.RedisDeadLetterStream)
		assert.True(t, decimal.NewFromInt(5).Equal(cfg.Invoice.AdminDefaultFee))
		assert.True(t, decimal.NewFromInt(10).Equal(cfg.Invoice.IngestionDefaultFee))
		assert.True(t, decimal.RequireFromString("0.25").Equal(cfg.Invoice.DefaultTaxRate))
		assert.Equal(t, 30, cfg.Invoice.DueDays)
		assert.Equal(t, "invoice-service", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with INV prefix", func(t *testing.T) {
		t.Setenv("INV_APP_NAME", "billing")
		t.Setenv("INV_DATABASE_DRIVER", "sqlite")
		t.Setenv("INV_QUEUE_DRIVER", "redis")
		t.Setenv("INV_QUEUE_CONCURRENCY", "8")
		t.Setenv("INV_QUEUE_REDIS_STREAM", "bookings")
		t.Setenv("INV_INVOICE_ADMIN_DEFAULT_FEE", "0")
		t.Setenv("INV_INVOICE_DEFAULT_TAX_RATE", "0.2")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "billing", cfg.App.Name)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "redis", cfg.Queue.Driver)
		assert.Equal(t, 8, cfg.Queue.Concurrency)
		assert.Equal(t, "bookings:dead", cfg.Queue.RedisDeadLetterStream)
		assert.True(t, cfg.Invoice.AdminDefaultFee.IsZero(), "explicit zero fee is kept")
		assert.True(t, decimal.RequireFromString("0.2").Equal(cfg.Invoice.DefaultTaxRate))
	})

	t.Run("rejects malformed decimal", func(t *testing.T) {
		t.Setenv("INV_INVOICE_DEFAULT_TAX_RATE", "a quarter")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects tax rate above one", func(t *testing.T) {
		t.Setenv("INV_INVOICE_DEFAULT_TAX_RATE", "1.5")
		_, err := Load()
		assert.ErrorContains(t, err, "default_tax_rate")
	})

	t.Run("rejects unknown queue driver", func(t *testing.T) {
		t.Setenv("INV_QUEUE_DRIVER", "kafka")
		_, err := Load()
		assert.ErrorContains(t, err, "queue.driver")
	})

	t.Run("production requires distinct api keys", func(t *testing.T) {
		t.Setenv("INV_APP_ENV", "production")
		t.Setenv("INV_DATABASE_PASSWORD", "secret")
		t.Setenv("INV_AUTH_USER_API_KEY", "same")
		t.Setenv("INV_AUTH_ADMIN_API_KEY", "same")
		_, err := Load()
		assert.ErrorContains(t, err, "must differ")

		t.Setenv("INV_AUTH_ADMIN_API_KEY", "other")
		_, err = Load()
		assert.NoError(t, err)
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		t.Setenv("INV_DATABASE_MAX_OPEN_CONNS", "2")
		t.Setenv("INV_DATABASE_MAX_IDLE_CONNS", "5")
		_, err := Load()
		assert.ErrorContains(t, err, "max_idle_conns")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "inv", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/inv?sslmode=disable", d.DSN())
}
