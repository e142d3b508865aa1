package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DBDriver       string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	SQLitePath     string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers       []string
	OrderEventsTopic   string
	PaymentEventsTopic string

	JWTSecret string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelEnvironment string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "storefront"),
		SQLitePath:         getEnv("SQLITE_PATH", "storefront.db"),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		OrderEventsTopic:   getEnv("ORDER_EVENTS_TOPIC", "storefront.orders"),
		PaymentEventsTopic: getEnv("PAYMENT_EVENTS_TOPIC", "storefront.payments"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		OTelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelEnvironment:    getEnv("OTEL_ENVIRONMENT", "local"),
	}

	var err error
	if cfg.DBPort, err = strconv.Atoi(getEnv("DB_PORT", "5432")); err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.OTelEnabled, err = strconv.ParseBool(getEnv("OTEL_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("invalid OTEL_ENABLED: %w", err)
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want postgres or sqlite", cfg.DBDriver)
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "./internal/repository/migrations/" + cfg.DBDriver
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
