package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("DB_DRIVER", "")

	cfg := Load()

	assert.Equal(t, 8084, cfg.Port)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.Stream.Timeout)
	assert.Equal(t, "group_reconcile", cfg.ReconcileQueue)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:app.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("WS_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("PROVIDER_TIMEOUT", "750ms")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")

	cfg := Load()

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file:app.db", cfg.DBDSN)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.True(t, cfg.WSInsecureSkipVerify)
	assert.Equal(t, 750*time.Millisecond, cfg.Stream.Timeout)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
}
