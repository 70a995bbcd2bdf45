// Package config loads the API server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

var Version = "dev"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Port      int
	LogLevel  slog.Level
	LogFormat string

	StoreDriver string
	DatabaseURL string

	BlobDir               string
	PublicBaseURL         string
	DownloadSigningSecret string
	ExportRetention       time.Duration

	AuthJWKSURL    string
	AuthIssuer     string
	AuthHMACSecret string

	RabbitMQURL string

	MailHost    string
	MailPort    int
	MailUser    string
	MailPass    string
	MailFrom    string
	NotifyEmail string

	KommoBaseURL  string
	KommoAPIToken string
	KommoStatusID int

	CORSAllowedOrigins []string
	IntakeRateLimit    int

	ConferenceCacheSize int
	ConferenceCacheTTL  time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Port, err = getEnvInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT: unsupported format %q, use json or text", cfg.LogFormat)
	}

	cfg.StoreDriver = getEnvDefault("STORE_DRIVER", StorePostgres)
	switch cfg.StoreDriver {
	case StorePostgres:
		cfg.DatabaseURL, err = getEnvRequired("DATABASE_URL")
		if err != nil {
			return nil, err
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER: unsupported driver %q, use postgres or memory", cfg.StoreDriver)
	}

	cfg.BlobDir = getEnvDefault("BLOB_DIR", "./data/blobs")
	cfg.PublicBaseURL = strings.TrimRight(getEnvDefault("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")
	cfg.DownloadSigningSecret, err = getEnvRequired("DOWNLOAD_SIGNING_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ExportRetention, err = getEnvPositiveDuration("EXPORT_RETENTION", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("EXPORT_RETENTION: %w", err)
	}

	cfg.AuthJWKSURL = os.Getenv("AUTH_JWKS_URL")
	cfg.AuthIssuer = os.Getenv("AUTH_ISSUER")
	cfg.AuthHMACSecret = os.Getenv("AUTH_HMAC_SECRET")
	if cfg.AuthJWKSURL == "" && cfg.AuthHMACSecret == "" {
		return nil, fmt.Errorf("AUTH_JWKS_URL or AUTH_HMAC_SECRET: at least one must be set")
	}

	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")

	cfg.MailHost = os.Getenv("MAIL_HOST")
	cfg.MailPort, err = getEnvInt("MAIL_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("MAIL_PORT: %w", err)
	}
	cfg.MailUser = os.Getenv("MAIL_USER")
	cfg.MailPass = os.Getenv("MAIL_PASS")
	cfg.MailFrom = getEnvDefault("MAIL_FROM", "no-reply@localhost")
	cfg.NotifyEmail = os.Getenv("NOTIFY_EMAIL")

	cfg.KommoBaseURL = os.Getenv("KOMMO_BASE_URL")
	cfg.KommoAPIToken = os.Getenv("KOMMO_API_TOKEN")
	cfg.KommoStatusID, err = getEnvInt("KOMMO_STATUS_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("KOMMO_STATUS_ID: %w", err)
	}
	if (cfg.KommoBaseURL == "") != (cfg.KommoAPIToken == "") {
		return nil, fmt.Errorf("KOMMO_BASE_URL and KOMMO_API_TOKEN must be set together")
	}

	cfg.CORSAllowedOrigins = splitList(getEnvDefault("CORS_ALLOWED_ORIGINS", "*"))

	cfg.IntakeRateLimit, err = getEnvInt("INTAKE_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("INTAKE_RATE_LIMIT: %w", err)
	}

	cfg.ConferenceCacheSize, err = getEnvInt("CONFERENCE_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("CONFERENCE_CACHE_SIZE: %w", err)
	}
	cfg.ConferenceCacheTTL, err = getEnvPositiveDuration("CONFERENCE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CONFERENCE_CACHE_TTL: %w", err)
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// NotificationsEnabled reports whether the worker should send e-mail.
func (c *Config) NotificationsEnabled() bool {
	return c.MailHost != "" && c.NotifyEmail != ""
}

func (c *Config) CRMEnabled() bool {
	return c.KommoBaseURL != "" && c.KommoAPIToken != ""
}

func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: required environment variable is not set", key)
	}
	return val, nil
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %q", val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q (use Go format: 30s, 1h, 15m)", val)
	}
	return d, nil
}

func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be > 0")
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported level %q, use debug, info, warn or error", level)
	}
}
