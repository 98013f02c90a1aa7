package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadUsesEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "cinema")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("DB_MIGRATE", "yes")

	cfg := Load()
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.True(t, cfg.MigrateOnStart)
}

func TestRateLimitClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 15*time.Second, rl.TTL)
}

func TestQueueURLPrecedence(t *testing.T) {
	t.Setenv("AMQP_URL", "amqp://b/")
	assert.Equal(t, "amqp://b/", LoadQueueConfig().URL)
	t.Setenv("RABBITMQ_URL", "amqp://a/")
	assert.Equal(t, "amqp://a/", LoadQueueConfig().URL)
}

func TestReconcileDefaultsAndBadValues(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL", "nonsense")
	t.Setenv("RECONCILE_GRACE", "-5s")
	rc := LoadReconcileConfig()
	assert.Equal(t, 5*time.Minute, rc.Interval)
	assert.Equal(t, time.Duration(0), rc.Grace)
}

func TestRedisHostPortOverridesAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	assert.Equal(t, "redis:6380", LoadRedisConfig().Addr)
}
