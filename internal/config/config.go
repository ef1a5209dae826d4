package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	AppName  string
	AppEnv   string
	AppPort  string
	LogLevel string

	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Table    TableConfig
	Worker   WorkerConfig
}

type DBConfig struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxConns     int
	QueryTimeout time.Duration
}

type RedisConfig struct {
	Host          string
	Port          string
	RedisPassword string
	RedisDB       string
	CacheTTL      time.Duration
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type JWTConfig struct {
	Secret string
}

type HTTPConfig struct {
	AllowedOrigin    string
	RateLimitEnabled bool
}

type TableConfig struct {
	PublicReads bool
	MaxPageSize int
}

type WorkerConfig struct {
	Count       int
	MetricsPort string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("Failed to read .env file")
	}

	return &Config{
		AppName:  getEnv("APP_NAME", "table-admin"),
		AppEnv:   strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		AppPort:  getEnv("APP_PORT", "3000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DB: DBConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         os.Getenv("DB_USER"),
			Password:     os.Getenv("DB_PASSWORD"),
			Name:         os.Getenv("DB_NAME"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxConns:     getEnvInt("DB_MAX_CONNS", 10),
			QueryTimeout: getEnvDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		},

		Redis: RedisConfig{
			Host:          os.Getenv("REDIS_HOST"),
			Port:          getEnv("REDIS_PORT", "6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnv("REDIS_DB", "0"),
			CacheTTL:      getEnvDuration("CACHE_TTL", time.Minute),
		},

		RabbitMQ: RabbitMQConfig{
			URL:   os.Getenv("RABBITMQ_URL"),
			Queue: getEnv("AUDIT_QUEUE", "table_events"),
		},

		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},

		HTTP: HTTPConfig{
			AllowedOrigin:    os.Getenv("ALLOWED_ORIGIN"),
			RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		},

		Table: TableConfig{
			PublicReads: getEnvBool("PUBLIC_TABLE_READS", false),
			MaxPageSize: getEnvInt("MAX_PAGE_SIZE", 1000),
		},

		Worker: WorkerConfig{
			Count:       getEnvInt("AUDIT_WORKERS", 3),
			MetricsPort: getEnv("WORKER_METRICS_PORT", "8088"),
		},
	}
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.HTTP.AllowedOrigin == "" {
			return errors.New("ALLOWED_ORIGIN is required in production")
		}
	}
	if c.DB.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DB.MaxConns)
	}
	if c.Table.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive, got %d", c.Table.MaxPageSize)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// DSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c *DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	// A URL escapes every part, so empty or spaced values cannot shift fields.
	dsn := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		dsn.User = url.UserPassword(c.User, c.Password)
	} else {
		dsn.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return dsn.String()
}

func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		logrus.WithField("key", key).Warnf("Invalid integer %q, using default %d", value, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		logrus.WithField("key", key).Warnf("Invalid boolean %q, using default %t", value, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logrus.WithField("key", key).Warnf("Invalid duration %q, using default %s", value, fallback)
	}
	return fallback
}
