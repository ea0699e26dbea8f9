// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Identity  IdentityConfig  `koanf:"identity"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	AI        AIConfig        `koanf:"ai"`
	Payments  PaymentsConfig  `koanf:"payments"`
	Mail      MailConfig      `koanf:"mail"`
	Jobs      JobsConfig      `koanf:"jobs"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// IdentityConfig describes how session tokens issued by the hosted identity
// provider are verified. Either JWKSURL or PublicKeyPath must be set.
type IdentityConfig struct {
	JWKSURL       string `koanf:"jwks_url"`
	PublicKeyPath string `koanf:"public_key_path"`
	Algorithm     string `koanf:"algorithm"`
	Issuer        string `koanf:"issuer"`
	Audience      string `koanf:"audience"`
	WebhookSecret string `koanf:"webhook_secret"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level        string        `koanf:"level"`
	Format       string        `koanf:"format"`
	FilePath     string        `koanf:"file_path"`
	MaxAge       time.Duration `koanf:"max_age"`
	RotationTime time.Duration `koanf:"rotation_time"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type AIConfig struct {
	APIKey        string        `koanf:"api_key"`
	Model         string        `koanf:"model"`
	BaseURL       string        `koanf:"base_url"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxInputChars int           `koanf:"max_input_chars"`
}

type PaymentsConfig struct {
	DefaultGateway string         `koanf:"default_gateway"`
	Stripe         StripeConfig   `koanf:"stripe"`
	Razorpay       RazorpayConfig `koanf:"razorpay"`
}

type StripeConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SecretKey     string `koanf:"secret_key"`
	WebhookSecret string `koanf:"webhook_secret"`
	Currency      string `koanf:"currency"`
	SuccessURL    string `koanf:"success_url"`
	CancelURL     string `koanf:"cancel_url"`
	BaseURL       string `koanf:"base_url"`
}

type RazorpayConfig struct {
	Enabled       bool   `koanf:"enabled"`
	KeyID         string `koanf:"key_id"`
	KeySecret     string `koanf:"key_secret"`
	WebhookSecret string `koanf:"webhook_secret"`
	Currency      string `koanf:"currency"`
	BaseURL       string `koanf:"base_url"`
}

type MailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type JobsConfig struct {
	Enabled               bool          `koanf:"enabled"`
	SubscriptionSweep     time.Duration `koanf:"subscription_sweep"`
	JWKSRefresh           time.Duration `koanf:"jwks_refresh"`
	WebhookEventRetention time.Duration `koanf:"webhook_event_retention"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "flashdeck",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "60s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"identity.algorithm": "RS256",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":         "info",
		"log.format":        "json",
		"log.max_age":       "168h",
		"log.rotation_time": "24h",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "flashdeck",

		"ai.model":           "gemini-2.0-flash",
		"ai.base_url":        "https://generativelanguage.googleapis.com/v1beta",
		"ai.timeout":         "45s",
		"ai.max_input_chars": 20000,

		"payments.default_gateway":   "razorpay",
		"payments.stripe.currency":   "usd",
		"payments.stripe.base_url":   "https://api.stripe.com/v1",
		"payments.razorpay.currency": "INR",
		"payments.razorpay.base_url": "https://api.razorpay.com/v1",

		"mail.port": 587,

		"jobs.enabled":                 true,
		"jobs.subscription_sweep":      "15m",
		"jobs.jwks_refresh":            "1h",
		"jobs.webhook_event_retention": "720h",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"LOG_FILE_PATH":               "log.file_path",
	"IDENTITY_JWKS_URL":           "identity.jwks_url",
	"IDENTITY_PUBLIC_KEY_PATH":    "identity.public_key_path",
	"IDENTITY_ALGORITHM":          "identity.algorithm",
	"IDENTITY_ISSUER":             "identity.issuer",
	"IDENTITY_AUDIENCE":           "identity.audience",
	"IDENTITY_WEBHOOK_SECRET":     "identity.webhook_secret",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"GEMINI_API_KEY":              "ai.api_key",
	"GEMINI_MODEL":                "ai.model",
	"PAYMENTS_DEFAULT_GATEWAY":    "payments.default_gateway",
	"STRIPE_ENABLED":              "payments.stripe.enabled",
	"STRIPE_SECRET_KEY":           "payments.stripe.secret_key",
	"STRIPE_WEBHOOK_SECRET":       "payments.stripe.webhook_secret",
	"STRIPE_SUCCESS_URL":          "payments.stripe.success_url",
	"STRIPE_CANCEL_URL":           "payments.stripe.cancel_url",
	"RAZORPAY_ENABLED":            "payments.razorpay.enabled",
	"RAZORPAY_KEY_ID":             "payments.razorpay.key_id",
	"RAZORPAY_KEY_SECRET":         "payments.razorpay.key_secret",
	"RAZORPAY_WEBHOOK_SECRET":     "payments.razorpay.webhook_secret",
	"SMTP_ENABLED":                "mail.enabled",
	"SMTP_HOST":                   "mail.host",
	"SMTP_PORT":                   "mail.port",
	"SMTP_USERNAME":               "mail.username",
	"SMTP_PASSWORD":               "mail.password",
	"SMTP_FROM":                   "mail.from",
	"JOBS_ENABLED":                "jobs.enabled",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Identity.JWKSURL == "" && c.Identity.PublicKeyPath == "" {
		return fmt.Errorf("IDENTITY_JWKS_URL or IDENTITY_PUBLIC_KEY_PATH is required")
	}

	switch c.Identity.Algorithm {
	case "RS256", "ES256":
	default:
		return fmt.Errorf("identity.algorithm %q is not supported", c.Identity.Algorithm)
	}

	if c.Payments.Stripe.Enabled {
		if c.Payments.Stripe.SecretKey == "" || c.Payments.Stripe.WebhookSecret == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required when stripe is enabled")
		}
	}

	if c.Payments.Razorpay.Enabled {
		if c.Payments.Razorpay.KeyID == "" ||
			c.Payments.Razorpay.KeySecret == "" ||
			c.Payments.Razorpay.WebhookSecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET and RAZORPAY_WEBHOOK_SECRET are required when razorpay is enabled")
		}
	}

	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "") {
		return fmt.Errorf("SMTP_HOST and SMTP_FROM are required when mail is enabled")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
