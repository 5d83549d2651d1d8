package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Auth      AuthConfig
	Queue     QueueConfig
	Invoice   InvoiceConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// AuthConfig holds the API keys that select the caller's role
type AuthConfig struct {
	UserAPIKey  string
	AdminAPIKey string
}

// QueueConfig holds ingestion transport settings
type QueueConfig struct {
	Driver         string // memory, redis, pubsub
	Enabled        bool
	Concurrency    int
	ReceiveBackoff time.Duration

	RedisStream           string
	RedisGroup            string
	RedisConsumer         string
	RedisBlock            time.Duration
	RedisClaimIdle        time.Duration
	RedisMaxDeliveries    int64
	RedisDeadLetterStream string
	// RedisEventStream receives invoice domain events; empty disables the relay
	RedisEventStream string

	PubSubProjectID      string
	PubSubTopic          string
	PubSubSubscription   string
	PubSubMaxOutstanding int
}

// InvoiceConfig holds billing policy defaults
type InvoiceConfig struct {
	AdminDefaultFee     decimal.Decimal
	IngestionDefaultFee decimal.Decimal
	DefaultTaxRate      decimal.Decimal
	DueDays             int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	// Database tracing options
	DBTraceEnabled bool // Enable database query tracing (otelgorm)
	DBLogFullSQL   bool // Log full SQL statements (dev only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with INV_ prefix (e.g., INV_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/invoicing")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("INV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Auth: AuthConfig{
			UserAPIKey:  v.GetString("auth.user_api_key"),
			AdminAPIKey: v.GetString("auth.admin_api_key"),
		},
		Queue: QueueConfig{
			Driver:                v.GetString("queue.driver"),
			Enabled:               v.GetBool("queue.enabled"),
			Concurrency:           v.GetInt("queue.concurrency"),
			ReceiveBackoff:        v.GetDuration("queue.receive_backoff"),
			RedisStream:           v.GetString("queue.redis_stream"),
			RedisGroup:            v.GetString("queue.redis_group"),
			RedisConsumer:         v.GetString("queue.redis_consumer"),
			RedisBlock:            v.GetDuration("queue.redis_block"),
			RedisClaimIdle:        v.GetDuration("queue.redis_claim_idle"),
			RedisMaxDeliveries:    v.GetInt64("queue.redis_max_deliveries"),
			RedisDeadLetterStream: v.GetString("queue.redis_dead_letter_stream"),
			RedisEventStream:      v.GetString("queue.redis_event_stream"),
			PubSubProjectID:       v.GetString("queue.pubsub_project_id"),
			PubSubTopic:           v.GetString("queue.pubsub_topic"),
			PubSubSubscription:    v.GetString("queue.pubsub_subscription"),
			PubSubMaxOutstanding:  v.GetInt("queue.pubsub_max_outstanding"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	invoice, err := loadInvoiceConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.Invoice = invoice

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadInvoiceConfig parses the money settings as decimals. An explicit 0 is kept.
func loadInvoiceConfig(v *viper.Viper) (InvoiceConfig, error) {
	out := InvoiceConfig{
		AdminDefaultFee:     decimal.NewFromInt(5),
		IngestionDefaultFee: decimal.NewFromInt(10),
		DefaultTaxRate:      decimal.RequireFromString("0.25"),
	}
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"invoice.admin_default_fee", &out.AdminDefaultFee},
		{"invoice.ingestion_default_fee", &out.IngestionDefaultFee},
		{"invoice.default_tax_rate", &out.DefaultTaxRate},
	}
	for _, f := range fields {
		raw := v.GetString(f.key)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return out, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = d
	}
	out.DueDays = v.GetInt("invoice.due_days")
	return out, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "invoice-service"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "invoicing"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "invoicing.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Queue.Driver == "" {
		cfg.Queue.Driver = "memory"
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 4
	}
	if cfg.Queue.ReceiveBackoff == 0 {
		cfg.Queue.ReceiveBackoff = time.Second
	}
	if cfg.Queue.RedisStream == "" {
		cfg.Queue.RedisStream = "invoices:requests"
	}
	if cfg.Queue.RedisGroup == "" {
		cfg.Queue.RedisGroup = "invoice-service"
	}
	if cfg.Queue.RedisConsumer == "" {
		cfg.Queue.RedisConsumer = "invoice-service-1"
	}
	if cfg.Queue.RedisBlock == 0 {
		cfg.Queue.RedisBlock = 2 * time.Second
	}
	if cfg.Queue.RedisClaimIdle == 0 {
		cfg.Queue.RedisClaimIdle = 30 * time.Second
	}
	if cfg.Queue.RedisMaxDeliveries == 0 {
		cfg.Queue.RedisMaxDeliveries = 10
	}
	if cfg.Queue.RedisDeadLetterStream == "" {
		cfg.Queue.RedisDeadLetterStream = cfg.Queue.RedisStream + ":dead"
	}
	if cfg.Invoice.DueDays == 0 {
		cfg.Invoice.DueDays = 30
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Queue.Driver {
	case "memory", "redis":
	case "pubsub":
		if c.Queue.Enabled && (c.Queue.PubSubProjectID == "" || c.Queue.PubSubSubscription == "") {
			return fmt.Errorf("queue.pubsub_project_id and queue.pubsub_subscription are required for the pubsub driver")
		}
	default:
		return fmt.Errorf("queue.driver must be memory, redis or pubsub, got %q", c.Queue.Driver)
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("queue.concurrency must be at least 1")
	}

	if c.Invoice.AdminDefaultFee.IsNegative() || c.Invoice.IngestionDefaultFee.IsNegative() {
		return fmt.Errorf("invoice default fees cannot be negative")
	}
	if c.Invoice.DefaultTaxRate.IsNegative() || c.Invoice.DefaultTaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("invoice.default_tax_rate must be between 0 and 1, got %s", c.Invoice.DefaultTaxRate)
	}
	if c.Invoice.DueDays < 0 {
		return fmt.Errorf("invoice.due_days cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Auth.UserAPIKey == "" || c.Auth.AdminAPIKey == "" {
			return fmt.Errorf("auth.user_api_key and auth.admin_api_key are required in production")
		}
		if c.Auth.UserAPIKey == c.Auth.AdminAPIKey {
			return fmt.Errorf("auth.user_api_key and auth.admin_api_key must differ")
		}
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
