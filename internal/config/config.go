package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service. It is built once
// at process start and handed to component constructors; nothing mutates it
// afterwards. Runtime-tunable values (notification toggles) live in the
// settings document instead.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Ingestion    IngestionConfig
	Maintenance  MaintenanceConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters. AdminDomain gates admin
// pages and actions by email suffix; AllowedDomains whitelists sender
// domains for ingestion.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminDomain           string
	AllowedDomains        []string
	BootstrapEmail        string
	BootstrapPassword     string
	BootstrapName         string
}

// StorageConfig points at the object-store HTTP API.
type StorageConfig struct {
	Endpoint         string
	Bucket           string
	Token            string
	MaxSizeBytes     int64
	AllowedMimeTypes []string
	RetentionDays    int
	TimeoutSeconds   int
}

// NotificationConfig holds outbound notification endpoints and the default
// per-event toggles (overridable through settings).
type NotificationConfig struct {
	EmailFrom     string
	AdminEmail    string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	WebhookURL    string
	EmailEnabled  bool
	WebhookEnable bool
}

// IngestionConfig tunes the inbound pipeline.
type IngestionConfig struct {
	DefaultStatus    string
	ClaimTTLSeconds  int
	LookupTimeoutSec int
}

// MaintenanceConfig tunes the periodic repair job.
type MaintenanceConfig struct {
	IntervalMinutes       int
	ActivityRetentionDays int
	RetryAttempts         int
	RetryDelayMillis      int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminDomain:           getEnv("AUTH_ADMIN_DOMAIN", ""),
			AllowedDomains:        getEnvAsList("AUTH_ALLOWED_DOMAINS"),
			BootstrapEmail:        os.Getenv("AUTH_BOOTSTRAP_EMAIL"),
			BootstrapPassword:     os.Getenv("AUTH_BOOTSTRAP_PASSWORD"),
			BootstrapName:         getEnv("AUTH_BOOTSTRAP_NAME", "Admin"),
		},
		Storage: StorageConfig{
			Endpoint:         getEnv("STORAGE_ENDPOINT", ""),
			Bucket:           getEnv("STORAGE_BUCKET", "helpdesk-attachments"),
			Token:            os.Getenv("STORAGE_TOKEN"),
			MaxSizeBytes:     int64(getEnvAsInt("STORAGE_MAX_SIZE_BYTES", 10*1024*1024)),
			AllowedMimeTypes: getEnvAsListDefault("STORAGE_ALLOWED_MIME_TYPES", []string{"image/*", "application/pdf", "text/plain"}),
			RetentionDays:    getEnvAsInt("STORAGE_RETENTION_DAYS", 30),
			TimeoutSeconds:   getEnvAsInt("STORAGE_TIMEOUT_SECONDS", 15),
		},
		Notification: NotificationConfig{
			EmailFrom:     getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			AdminEmail:    getEnv("NOTIFY_ADMIN_EMAIL", ""),
			SMTPHost:      getEnv("NOTIFY_SMTP_HOST", ""),
			SMTPPort:      getEnvAsInt("NOTIFY_SMTP_PORT", 587),
			SMTPUser:      os.Getenv("NOTIFY_SMTP_USER"),
			SMTPPassword:  os.Getenv("NOTIFY_SMTP_PASSWORD"),
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
			EmailEnabled:  getEnvAsBool("NOTIFY_EMAIL_ENABLED", true),
			WebhookEnable: getEnvAsBool("NOTIFY_WEBHOOK_ENABLED", true),
		},
		Ingestion: IngestionConfig{
			DefaultStatus:    getEnv("INGEST_DEFAULT_STATUS", "new"),
			ClaimTTLSeconds:  getEnvAsInt("INGEST_CLAIM_TTL_SECONDS", 30),
			LookupTimeoutSec: getEnvAsInt("INGEST_LOOKUP_TIMEOUT_SECONDS", 5),
		},
		Maintenance: MaintenanceConfig{
			IntervalMinutes:       getEnvAsInt("MAINTENANCE_INTERVAL_MINUTES", 60),
			ActivityRetentionDays: getEnvAsInt("MAINTENANCE_ACTIVITY_RETENTION_DAYS", 90),
			RetryAttempts:         getEnvAsInt("MAINTENANCE_RETRY_ATTEMPTS", 3),
			RetryDelayMillis:      getEnvAsInt("MAINTENANCE_RETRY_DELAY_MILLIS", 200),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LookupTimeout bounds directory lookups for chat sender ids.
func (i IngestionConfig) LookupTimeout() time.Duration {
	if i.LookupTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(i.LookupTimeoutSec) * time.Second
}

// ClaimTTL returns the conversation claim lock lifetime.
func (i IngestionConfig) ClaimTTL() time.Duration {
	if i.ClaimTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(i.ClaimTTLSeconds) * time.Second
}

// Interval returns the maintenance cadence.
func (m MaintenanceConfig) Interval() time.Duration {
	if m.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(m.IntervalMinutes) * time.Minute
}

// RetryDelay returns the base backoff for maintenance retries.
func (m MaintenanceConfig) RetryDelay() time.Duration {
	if m.RetryDelayMillis <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(m.RetryDelayMillis) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	return getEnvAsListDefault(key, nil)
}

func getEnvAsListDefault(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
