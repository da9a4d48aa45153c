package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fleetops/workorder-service/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
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
	DSN             string
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	HealthCheckSec  int32
	// StatementTimeoutMs bounds each statement server-side; 0 leaves the server default.
	StatementTimeoutMs int
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	// BootstrapAdminEmail, when set, seeds an administrator on startup if none exists with
	// that email.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// SLAConfig drives the SLA engine and the background monitor.
type SLAConfig struct {
	// StatusThresholds holds the maximum dwell per status, in minutes.
	StatusThresholds       map[domain.WorkOrderStatus]int
	WarningThreshold       float64
	ServiceCenterChannel   string
	MonitorIntervalSeconds int
	MonitorBatchSize       int
	PolicyCacheTTLSeconds  int
	AlertDedupeTTLMinutes  int
}

const defaultStatusThresholds = "New=60,Confirmation=240,Ready=480,In Progress=1440,On Hold=2880"

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	thresholds, err := ParseStatusThresholds(getEnv("SLA_STATUS_THRESHOLDS", defaultStatusThresholds))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_STATUS_THRESHOLDS: %w", err)
	}
	warning, err := strconv.ParseFloat(getEnv("SLA_WARNING_THRESHOLD", "0.75"), 64)
	if err != nil || warning <= 0 || warning > 1 {
		return nil, fmt.Errorf("invalid SLA_WARNING_THRESHOLD: must be a fraction in (0,1]")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "workorder-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:                os.Getenv("POSTGRES_DSN"),
			ApplicationName:    getEnv("APP_NAME", "workorder-service"),
			MaxConns:           maxConns,
			MinConns:           minConns,
			RunMigrations:      runMigrations,
			MigrationsDir:      getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:     connMaxIdle,
			ConnMaxLifeSec:     connMaxLife,
			HealthCheckSec:     int32(getEnvAsInt("POSTGRES_HEALTH_CHECK_SECONDS", 30)),
			StatementTimeoutMs: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 15000),
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
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapAdminEmail:    os.Getenv("AUTH_BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword: os.Getenv("AUTH_BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		SLA: SLAConfig{
			StatusThresholds:       thresholds,
			WarningThreshold:       warning,
			ServiceCenterChannel:   getEnv("SLA_SERVICE_CENTER_CHANNEL", domain.ChannelServiceCenter),
			MonitorIntervalSeconds: getEnvAsInt("SLA_MONITOR_INTERVAL_SECONDS", 60),
			MonitorBatchSize:       getEnvAsInt("SLA_MONITOR_BATCH_SIZE", 500),
			PolicyCacheTTLSeconds:  getEnvAsInt("SLA_POLICY_CACHE_TTL_SECONDS", 300),
			AlertDedupeTTLMinutes:  getEnvAsInt("SLA_ALERT_DEDUPE_TTL_MINUTES", 1440),
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

// MonitorInterval returns the SLA monitor tick; zero disables the monitor.
func (s SLAConfig) MonitorInterval() time.Duration {
	if s.MonitorIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(s.MonitorIntervalSeconds) * time.Second
}

// PolicyCacheTTL returns how long cached SLA policies stay valid.
func (s SLAConfig) PolicyCacheTTL() time.Duration {
	if s.PolicyCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.PolicyCacheTTLSeconds) * time.Second
}

// AlertDedupeTTL bounds how long a raised SLA alert suppresses repeats.
func (s SLAConfig) AlertDedupeTTL() time.Duration {
	if s.AlertDedupeTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.AlertDedupeTTLMinutes) * time.Minute
}

// ParseStatusThresholds reads "Status=minutes" pairs separated by commas.
// Status names are matched case-insensitively; an empty string yields an empty map.
func ParseStatusThresholds(raw string) (map[domain.WorkOrderStatus]int, error) {
	result := make(map[domain.WorkOrderStatus]int)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected Status=minutes, got %q", pair)
		}
		status, ok := domain.ParseStatus(name)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", strings.TrimSpace(name))
		}
		minutes, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("invalid minutes for %s: %q", status, strings.TrimSpace(value))
		}
		result[status] = minutes
	}
	return result, nil
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
