// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ecommers/orderflow/internal/telemetry"
)

// Common holds settings every service reads.
type Common struct {
	Port            string
	LogLevel        slog.Level
	ServiceVersion  string
	OTLPEndpoint    string
	ShutdownTimeout time.Duration
}

type Orders struct {
	Common
	PostgresURL  string
	KafkaBrokers []string
}

type Inventory struct {
	Common
	PostgresURL string
}

type Worker struct {
	Common
	KafkaBrokers        []string
	ConsumerGroup       string
	EmailServiceURL     string
	OrdersServiceURL    string
	InventoryServiceURL string
	HTTPTimeout         time.Duration
}

type Email struct {
	Common
	MinDelay time.Duration
	MaxDelay time.Duration
}

type Gateway struct {
	Common
	OrdersServiceURL    string
	InventoryServiceURL string
	AllowedOrigins      []string
	HTTPTimeout         time.Duration
}

type Migrate struct {
	LogLevel       slog.Level
	PostgresURL    string
	MigrationsPath string
}

func loadCommon(defaultPort string) (Common, error) {
	level, err := telemetry.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Common{}, err
	}

	shutdownTimeout, err := getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Common{}, err
	}

	return Common{
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        level,
		ServiceVersion:  getEnv("SERVICE_VERSION", "0.1.0"),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func LoadOrders() (*Orders, error) {
	common, err := loadCommon("8081")
	if err != nil {
		return nil, err
	}

	cfg := &Orders{
		Common:       common,
		PostgresURL:  os.Getenv("POSTGRES_URL"),
		KafkaBrokers: getEnvAsSlice("KAFKA_BROKERS", nil),
	}

	if cfg.PostgresURL == "" {
		return nil, errors.New("POSTGRES_URL environment variable is required")
	}
	return cfg, nil
}

func LoadInventory() (*Inventory, error) {
	common, err := loadCommon("8082")
	if err != nil {
		return nil, err
	}

	cfg := &Inventory{
		Common:      common,
		PostgresURL: os.Getenv("POSTGRES_URL"),
	}

	if cfg.PostgresURL == "" {
		return nil, errors.New("POSTGRES_URL environment variable is required")
	}
	return cfg, nil
}

func LoadWorker() (*Worker, error) {
	common, err := loadCommon("")
	if err != nil {
		return nil, err
	}

	httpTimeout, err := getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Worker{
		Common:              common,
		KafkaBrokers:        getEnvAsSlice("KAFKA_BROKERS", nil),
		ConsumerGroup:       getEnv("CONSUMER_GROUP", "fulfillment-worker"),
		EmailServiceURL:     os.Getenv("EMAIL_SERVICE_URL"),
		OrdersServiceURL:    os.Getenv("ORDERS_SERVICE_URL"),
		InventoryServiceURL: os.Getenv("INVENTORY_SERVICE_URL"),
		HTTPTimeout:         httpTimeout,
	}

	if err := requireAll(map[string]bool{
		"KAFKA_BROKERS":         len(cfg.KafkaBrokers) > 0,
		"EMAIL_SERVICE_URL":     cfg.EmailServiceURL != "",
		"ORDERS_SERVICE_URL":    cfg.OrdersServiceURL != "",
		"INVENTORY_SERVICE_URL": cfg.InventoryServiceURL != "",
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadEmail() (*Email, error) {
	common, err := loadCommon("8084")
	if err != nil {
		return nil, err
	}

	minDelayMS, err := getEnvAsInt("EMAIL_MIN_DELAY_MS", 50)
	if err != nil {
		return nil, err
	}
	maxDelayMS, err := getEnvAsInt("EMAIL_MAX_DELAY_MS", 200)
	if err != nil {
		return nil, err
	}

	cfg := &Email{
		Common:   common,
		MinDelay: time.Duration(minDelayMS) * time.Millisecond,
		MaxDelay: time.Duration(maxDelayMS) * time.Millisecond,
	}

	if cfg.MinDelay < 0 || cfg.MaxDelay < cfg.MinDelay {
		return nil, fmt.Errorf("invalid email delay range [%s, %s]", cfg.MinDelay, cfg.MaxDelay)
	}
	return cfg, nil
}

func LoadGateway() (*Gateway, error) {
	common, err := loadCommon("8080")
	if err != nil {
		return nil, err
	}

	httpTimeout, err := getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Gateway{
		Common:              common,
		OrdersServiceURL:    os.Getenv("ORDERS_SERVICE_URL"),
		InventoryServiceURL: os.Getenv("INVENTORY_SERVICE_URL"),
		AllowedOrigins:      getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		HTTPTimeout:         httpTimeout,
	}

	if err := requireAll(map[string]bool{
		"ORDERS_SERVICE_URL":    cfg.OrdersServiceURL != "",
		"INVENTORY_SERVICE_URL": cfg.InventoryServiceURL != "",
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadMigrate() (*Migrate, error) {
	level, err := telemetry.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Migrate{
		LogLevel:       level,
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),
	}

	if cfg.PostgresURL == "" {
		return nil, errors.New("POSTGRES_URL environment variable is required")
	}
	return cfg, nil
}

func requireAll(present map[string]bool) error {
	var missing []string
	for key, ok := range present {
		if !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns defaultValue when key is unset and an error naming
// key when the value is not an integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
