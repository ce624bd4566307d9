package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite"
)

// Blob drivers.
const (
	BlobDriverMemory = "memory"
	BlobDriverS3     = "s3"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Assignment   AssignmentConfig
	Blob         BlobConfig
	DevTools     DevToolsConfig
	Seed         SeedConfig
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

// StoreConfig selects the record store driver.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	ApplicationName    string
	StatementTimeoutMs int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int

	PoolSize      int
	DialTimeoutMs int
	ReadTimeoutMs int
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
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// AssignmentConfig tunes the request/locker reconciler.
type AssignmentConfig struct {
	AutoReserve           bool
	ProtectLockedStatuses bool
	LockTTLSeconds        int
}

// BlobConfig selects where zone map images are stored.
type BlobConfig struct {
	Driver         string
	Bucket         string
	Region         string
	Endpoint       string
	UsePathStyle   bool
	PresignTTLSecs int
	MaxUploadBytes int
}

// DevToolsConfig gates the developer console routes.
type DevToolsConfig struct {
	Enabled bool
}

// SeedConfig toggles demo data on startup.
type SeedConfig struct {
	DemoData    bool
	LockerCount int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "locker-service"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
			SQLitePath: getEnv("SQLITE_PATH", "data/lockers.db"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),

			ApplicationName:    getEnv("POSTGRES_APPLICATION_NAME", "locker-service"),
			StatementTimeoutMs: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", 5000),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,

			PoolSize:      getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeoutMs: getEnvAsInt("REDIS_DIAL_TIMEOUT_MS", 2000),
			ReadTimeoutMs: getEnvAsInt("REDIS_READ_TIMEOUT_MS", 500),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Assignment: AssignmentConfig{
			AutoReserve:           getEnvAsBool("ASSIGNMENT_AUTO_RESERVE", true),
			ProtectLockedStatuses: getEnvAsBool("ASSIGNMENT_PROTECT_LOCKED_STATUSES", false),
			LockTTLSeconds:        getEnvAsInt("ASSIGNMENT_LOCK_TTL_SECONDS", 10),
		},
		Blob: BlobConfig{
			Driver:         strings.ToLower(getEnv("BLOB_DRIVER", BlobDriverMemory)),
			Bucket:         getEnv("BLOB_S3_BUCKET", ""),
			Region:         getEnv("BLOB_S3_REGION", "eu-central-1"),
			Endpoint:       os.Getenv("BLOB_S3_ENDPOINT"),
			UsePathStyle:   getEnvAsBool("BLOB_S3_PATH_STYLE", false),
			PresignTTLSecs: getEnvAsInt("BLOB_PRESIGN_TTL_SECONDS", 900),
			MaxUploadBytes: getEnvAsInt("BLOB_MAX_UPLOAD_BYTES", 5<<20),
		},
		DevTools: DevToolsConfig{
			Enabled: getEnvAsBool("DEVTOOLS_ENABLED", env == "development"),
		},
		Seed: SeedConfig{
			DemoData:    getEnvAsBool("SEED_DEMO_DATA", false),
			LockerCount: getEnvAsInt("SEED_LOCKER_COUNT", 1000),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory, StoreDriverSQLite:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Blob.Driver {
	case BlobDriverMemory:
	case BlobDriverS3:
		if c.Blob.Bucket == "" {
			return fmt.Errorf("BLOB_S3_BUCKET is required for the s3 blob driver")
		}
	default:
		return fmt.Errorf("invalid BLOB_DRIVER %q", c.Blob.Driver)
	}
	if c.Store.Driver == StoreDriverPostgres && c.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for the postgres store driver")
	}
	return nil
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

// AccessTokenTTL returns the lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// LockTTL bounds how long a reconcile may hold its request and locker locks.
func (a AssignmentConfig) LockTTL() time.Duration {
	if a.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.LockTTLSeconds) * time.Second
}

// PresignTTL returns how long presigned map URLs stay valid.
func (b BlobConfig) PresignTTL() time.Duration {
	return time.Duration(b.PresignTTLSecs) * time.Second
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
