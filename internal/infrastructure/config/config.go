package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Telemetry    TelemetryConfig
	Loyalty      LoyaltyConfig
	Notification NotificationConfig
	Idempotency  IdempotencyConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name      string
	Env       string
	Port      string
	PublicURL string // base URL of the public card pages
}

// DatabaseConfig holds database connection settings.
// An empty Host means no data store is configured.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// IsConfigured reports whether connection settings were supplied
func (d *DatabaseConfig) IsConfigured() bool {
	return d.Host != ""
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable tracing
	MetricsEnabled    bool    // Whether to export metrics
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// LoyaltyConfig holds program defaults applied when a merchant has not set
// its own values
type LoyaltyConfig struct {
	WelcomePoints           int64
	PointsPerPurchase       int64
	PurchaseAmountThreshold int64
	RedemptionTTL           time.Duration
	CodeAttempts            int
	HistoryPageSize         int
	MaxPageSize             int
	DefaultLanguage         string
}

// Notification transports
const (
	TransportLog     = "log"
	TransportGateway = "gateway"
	TransportKafka   = "kafka"
)

// NotificationConfig holds outbound messaging configuration
type NotificationConfig struct {
	Enabled   bool
	Transport string // log, gateway, kafka
	Workers   int
	QueueSize int
	Gateway   GatewayConfig
	Kafka     KafkaConfig
}

// GatewayConfig holds the messaging gateway (Twilio-compatible) settings
type GatewayConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
	Timeout    time.Duration
}

// KafkaConfig holds the notification topic settings
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// IdempotencyConfig holds Idempotency-Key handling settings
type IdempotencyConfig struct {
	Enabled bool
	Backend string // memory, redis
	TTL     time.Duration
}

// Load loads configuration from a .env file, config.toml and environment
// variables. Priority (highest to lowest):
// 1. Environment variables with QUALEE_ prefix (e.g., QUALEE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("QUALEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:      v.GetString("app.name"),
			Env:       v.GetString("app.env"),
			Port:      v.GetString("app.port"),
			PublicURL: v.GetString("app.public_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
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
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Loyalty: LoyaltyConfig{
			WelcomePoints:           v.GetInt64("loyalty.welcome_points"),
			PointsPerPurchase:       v.GetInt64("loyalty.points_per_purchase"),
			PurchaseAmountThreshold: v.GetInt64("loyalty.purchase_amount_threshold"),
			RedemptionTTL:           v.GetDuration("loyalty.redemption_ttl"),
			CodeAttempts:            v.GetInt("loyalty.code_attempts"),
			HistoryPageSize:         v.GetInt("loyalty.history_page_size"),
			MaxPageSize:             v.GetInt("loyalty.max_page_size"),
			DefaultLanguage:         v.GetString("loyalty.default_language"),
		},
		Notification: NotificationConfig{
			Enabled:   v.GetBool("notification.enabled"),
			Transport: v.GetString("notification.transport"),
			Workers:   v.GetInt("notification.workers"),
			QueueSize: v.GetInt("notification.queue_size"),
			Gateway: GatewayConfig{
				BaseURL:    v.GetString("notification.gateway.base_url"),
				AccountSID: v.GetString("notification.gateway.account_sid"),
				AuthToken:  v.GetString("notification.gateway.auth_token"),
				FromNumber: v.GetString("notification.gateway.from_number"),
				Timeout:    v.GetDuration("notification.gateway.timeout"),
			},
			Kafka: KafkaConfig{
				Brokers:      v.GetStringSlice("notification.kafka.brokers"),
				Topic:        v.GetString("notification.kafka.topic"),
				WriteTimeout: v.GetDuration("notification.kafka.write_timeout"),
			},
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("idempotency.enabled"),
			Backend: v.GetString("idempotency.backend"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setViperDefaults registers defaults for values whose zero is meaningful
// and so cannot be told apart from "unset" once read.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("loyalty.welcome_points", 50)
	v.SetDefault("notification.enabled", true)
	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("http.rate_limit_enabled", true)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "qualee-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.PublicURL == "" {
		cfg.App.PublicURL = "http://localhost:" + cfg.App.Port
	}
	// database.host deliberately has no default.
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "qualee"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
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
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// No CORS origin default: cross-origin requests stay blocked until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
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
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Loyalty.PointsPerPurchase == 0 {
		cfg.Loyalty.PointsPerPurchase = 10
	}
	if cfg.Loyalty.PurchaseAmountThreshold == 0 {
		cfg.Loyalty.PurchaseAmountThreshold = 1000
	}
	if cfg.Loyalty.RedemptionTTL == 0 {
		cfg.Loyalty.RedemptionTTL = 30 * 24 * time.Hour
	}
	if cfg.Loyalty.CodeAttempts == 0 {
		cfg.Loyalty.CodeAttempts = 5
	}
	if cfg.Loyalty.HistoryPageSize == 0 {
		cfg.Loyalty.HistoryPageSize = 50
	}
	if cfg.Loyalty.MaxPageSize == 0 {
		cfg.Loyalty.MaxPageSize = 200
	}
	if cfg.Loyalty.DefaultLanguage == "" {
		cfg.Loyalty.DefaultLanguage = "en"
	}
	if cfg.Notification.Transport == "" {
		cfg.Notification.Transport = TransportLog
	}
	if cfg.Notification.Workers == 0 {
		cfg.Notification.Workers = 2
	}
	if cfg.Notification.QueueSize == 0 {
		cfg.Notification.QueueSize = 256
	}
	if cfg.Notification.Gateway.BaseURL == "" {
		cfg.Notification.Gateway.BaseURL = "https://api.twilio.com"
	}
	if cfg.Notification.Gateway.Timeout == 0 {
		cfg.Notification.Gateway.Timeout = 10 * time.Second
	}
	if cfg.Notification.Kafka.Topic == "" {
		cfg.Notification.Kafka.Topic = "loyalty.notifications"
	}
	if cfg.Notification.Kafka.WriteTimeout == 0 {
		cfg.Notification.Kafka.WriteTimeout = 10 * time.Second
	}
	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = "memory"
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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

	if c.App.Env == "production" {
		if c.Database.IsConfigured() && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.IsConfigured() && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.Loyalty.WelcomePoints < 0 {
		return fmt.Errorf("loyalty.welcome_points cannot be negative")
	}
	if c.Loyalty.PointsPerPurchase < 0 || c.Loyalty.PurchaseAmountThreshold < 0 {
		return fmt.Errorf("loyalty.points_per_purchase and loyalty.purchase_amount_threshold must be positive")
	}
	if c.Loyalty.MaxPageSize < c.Loyalty.HistoryPageSize {
		return fmt.Errorf("loyalty.max_page_size (%d) cannot be below loyalty.history_page_size (%d)",
			c.Loyalty.MaxPageSize, c.Loyalty.HistoryPageSize)
	}

	switch c.Notification.Transport {
	case TransportLog:
	case TransportGateway:
		if c.Notification.Enabled && (c.Notification.Gateway.AccountSID == "" || c.Notification.Gateway.FromNumber == "") {
			return fmt.Errorf("notification.gateway.account_sid and notification.gateway.from_number are required for the gateway transport")
		}
	case TransportKafka:
		if c.Notification.Enabled && len(c.Notification.Kafka.Brokers) == 0 {
			return fmt.Errorf("notification.kafka.brokers is required for the kafka transport")
		}
	default:
		return fmt.Errorf("notification.transport must be one of log, gateway, kafka, got %q", c.Notification.Transport)
	}

	switch c.Idempotency.Backend {
	case "memory":
	case "redis":
		if c.Idempotency.Enabled && !c.Redis.Enabled {
			return fmt.Errorf("idempotency.backend=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("idempotency.backend must be memory or redis, got %q", c.Idempotency.Backend)
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
