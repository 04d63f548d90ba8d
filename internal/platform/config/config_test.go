package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"CLAIMLEDGER_ADDR", "KAFKA_BROKERS", "RESOLVE_TIMEOUT", "AUDIT_BUFFER", "DATABASE_URL", "RATE_LIMIT_PER_MINUTE"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "claimledger.audit", cfg.Kafka.Topic)
	assert.Equal(t, 5*time.Second, cfg.Resolve.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Zero(t, cfg.AuditBuffer)
	assert.Equal(t, 600, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CLAIMLEDGER_ADDR", ":9090")
	t.Setenv("CLAIMLEDGER_ENV", "production")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("RESOLVE_TIMEOUT", "250ms")
	t.Setenv("RESOLVE_CONCURRENCY", "not-a-number")
	t.Setenv("AUDIT_BUFFER", "64")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Resolve.Timeout)
	assert.Equal(t, 8, cfg.Resolve.Concurrency, "invalid values fall back")
	assert.Equal(t, 64, cfg.AuditBuffer)
	assert.Zero(t, cfg.RateLimitPerMinute, "zero disables limiting")
}
