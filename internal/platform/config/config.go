package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	// PostgresDSN enables the Postgres record index and audit store when set.
	PostgresDSN string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Resolve     ResolveConfig

	// RemoteQueryURL is the base URL of a peer node used for pointer
	// resolution, with the local index as fallback.
	RemoteQueryURL string

	// AuditBuffer > 0 makes audit emission asynchronous.
	AuditBuffer int

	// RateLimitPerMinute caps API requests per client IP. Zero disables.
	RateLimitPerMinute int
}

// RedisConfig configures the record cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the audit stream. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// ResolveConfig tunes pointer resolution.
type ResolveConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// IsProduction reports whether the process runs with production settings.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("CLAIMLEDGER_ADDR", ":8080"),
		Environment: getEnv("CLAIMLEDGER_ENV", "development"),
		LogLevel:    getEnv("CLAIMLEDGER_LOG_LEVEL", "info"),
		PostgresDSN: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     getDuration("RECORD_CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       getList("KAFKA_BROKERS"),
			Topic:         getEnv("KAFKA_AUDIT_TOPIC", "claimledger.audit"),
			ConsumerGroup: getEnv("KAFKA_AUDIT_GROUP", "claimledger-audit"),
		},
		Resolve: ResolveConfig{
			Timeout:     getDuration("RESOLVE_TIMEOUT", 5*time.Second),
			Concurrency: getInt("RESOLVE_CONCURRENCY", 8),
		},
		RemoteQueryURL: os.Getenv("REMOTE_QUERY_URL"),
		AuditBuffer:    getInt("AUDIT_BUFFER", 0),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 600),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
