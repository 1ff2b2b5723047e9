package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Store    StoreConfig
	Dispatch DispatchConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	// Addr empty keeps page containers in process memory.
	Addr    string
	PageTTL time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	Topics   TopicConfig
	MockMode bool
	Enabled  bool
}

type TopicConfig struct {
	DispatchSucceeded string
	DispatchFailed    string
}

type StoreConfig struct {
	Driver        string
	DSN           string
	MigrationsDir string
	AutoMigrate   bool
}

type DispatchConfig struct {
	BaseURL          string
	Mode             string
	Concurrency      int
	RequestTimeout   time.Duration
	ClientTimeout    time.Duration
	MaxFragmentBytes int64
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // fragment streams are long-lived
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", ""),
			PageTTL: time.Duration(getEnvInt("REDIS_PAGE_TTL_MINUTES", 30)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:  getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled:  getEnvBool("KAFKA_ENABLED", false),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
			Topics: TopicConfig{
				DispatchSucceeded: getEnv("KAFKA_TOPIC_SUCCEEDED", "groups.dispatch.succeeded"),
				DispatchFailed:    getEnv("KAFKA_TOPIC_FAILED", "groups.dispatch.failed"),
			},
		},
		Store: StoreConfig{
			Driver:        getEnv("STORE_DRIVER", "sqlite"),
			DSN:           getEnv("STORE_DSN", "file:groups.db?cache=shared"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate:   getEnvBool("STORE_AUTO_MIGRATE", true),
		},
		Dispatch: DispatchConfig{
			BaseURL:          getEnv("DISPATCH_BASE_URL", ""),
			Mode:             getEnv("DISPATCH_MODE", "shared"),
			Concurrency:      getEnvInt("DISPATCH_CONCURRENCY", 0),
			RequestTimeout:   time.Duration(getEnvInt("DISPATCH_TIMEOUT_SECONDS", 0)) * time.Second,
			ClientTimeout:    time.Duration(getEnvInt("HTTP_CLIENT_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxFragmentBytes: int64(getEnvInt("DISPATCH_MAX_FRAGMENT_BYTES", 1<<20)),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
