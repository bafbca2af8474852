package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Scheduler    SchedulerConfig
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

// SchedulerConfig controls the escalation workflow timer.
type SchedulerConfig struct {
	IntervalSeconds int
	UseRedisLock    bool
	LockTTLSeconds  int
}

// NotificationConfig holds the outbound delivery settings.
type NotificationConfig struct {
	WebhookURL            string
	WebhookTimeoutSeconds int
	QueueSize             int
	SubscriberBuffer      int
}

// SLAConfig points at the hot-reloadable threshold file.
type SLAConfig struct {
	ConfigPath string
}

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

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sla-escalation-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Scheduler: SchedulerConfig{
			IntervalSeconds: getEnvAsInt("SCHEDULER_INTERVAL_SECONDS", 60),
			UseRedisLock:    getEnvAsBool("SCHEDULER_REDIS_LOCK", false),
			LockTTLSeconds:  getEnvAsInt("SCHEDULER_LOCK_TTL_SECONDS", 300),
		},
		Notification: NotificationConfig{
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
			QueueSize:             getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			SubscriberBuffer:      getEnvAsInt("WS_SUBSCRIBER_BUFFER", 64),
		},
		SLA: SLAConfig{
			ConfigPath: os.Getenv("SLA_CONFIG_PATH"),
		},
	}

	if cfg.SLA.ConfigPath == "" {
		return nil, errors.New("SLA_CONFIG_PATH is required")
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

// Interval returns the escalation period, never below one second.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// LockTTL returns how long a replica may hold the escalation lease.
func (s SchedulerConfig) LockTTL() time.Duration {
	if s.LockTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.LockTTLSeconds) * time.Second
}

// WebhookTimeout returns the bound applied to each webhook call.
func (n NotificationConfig) WebhookTimeout() time.Duration {
	if n.WebhookTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(n.WebhookTimeoutSeconds) * time.Second
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
