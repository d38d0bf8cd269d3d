package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	SQLite SQLiteConfig
	Mongo  MongoConfig
	Edgar  EdgarConfig
	Kafka  KafkaConfig
	Redis  RedisConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// SQLiteConfig holds the relational warehouse configuration
type SQLiteConfig struct {
	Path string
}

// MongoConfig holds the document warehouse configuration.
// Ports are candidate ports tried in order; Timeout bounds each attempt.
type MongoConfig struct {
	Host       string
	Ports      []int
	Timeout    time.Duration
	Database   string
	Collection string
}

// EdgarConfig holds SEC EDGAR client configuration.
// UserAgent is the contact identity the SEC requires on every request.
type EdgarConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// KafkaConfig holds Kafka configuration. An empty broker list disables
// event publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig holds the lookup-cache configuration. An empty Addr disables
// caching.
type RedisConfig struct {
	Addr string
	TTL  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "finance_warehouse.db"),
		},
		Mongo: MongoConfig{
			Host:       getEnv("MONGO_HOST", "127.0.0.1"),
			Ports:      getEnvInts("MONGO_PORTS", []int{27017, 27018}),
			Timeout:    getEnvDuration("MONGO_TIMEOUT", 2*time.Second),
			Database:   getEnv("MONGO_DATABASE", "FinDataWarehouse"),
			Collection: getEnv("MONGO_COLLECTION", "filings"),
		},
		Edgar: EdgarConfig{
			UserAgent: getEnv("EDGAR_USER_AGENT", "FinCoreWarehouse/1.0 (ops@fincore.example)"),
			Timeout:   getEnvDuration("EDGAR_TIMEOUT", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "filing-events"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
			TTL:  getEnvDuration("REDIS_TTL", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range splitNonEmpty(value) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func splitNonEmpty(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
