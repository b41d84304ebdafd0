package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 int
	LogLevel             string
	DBDriver             string
	DBDSN                string
	JWTSecret            string
	WSInsecureSkipVerify bool

	Stream StreamConfig

	// Zero values keep the in-process implementations.
	RedisAddr string
	AMQPURL   string

	ReconcileQueue    string
	ReconcileInterval time.Duration
	LockTTL           time.Duration
	StoreRetryMax     time.Duration
}

type StreamConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// Load reads configuration from the environment (after godotenv has run).
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", 8084)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("WS_INSECURE_SKIP_VERIFY", false)
	v.SetDefault("STREAM_BASE_URL", "https://chat.stream-io-api.com")
	v.SetDefault("PROVIDER_TIMEOUT", 5*time.Second)
	v.SetDefault("RECONCILE_QUEUE", "group_reconcile")
	v.SetDefault("RECONCILE_INTERVAL", 10*time.Minute)
	v.SetDefault("LOCK_TTL", 30*time.Second)
	v.SetDefault("STORE_RETRY_MAX_ELAPSED", 2*time.Second)

	return Config{
		Port:                 v.GetInt("APP_PORT"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		DBDriver:             v.GetString("DB_DRIVER"),
		DBDSN:                v.GetString("DB_DSN"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		WSInsecureSkipVerify: v.GetBool("WS_INSECURE_SKIP_VERIFY"),
		Stream: StreamConfig{
			APIKey:    v.GetString("STREAM_API_KEY"),
			APISecret: v.GetString("STREAM_API_SECRET"),
			BaseURL:   v.GetString("STREAM_BASE_URL"),
			Timeout:   v.GetDuration("PROVIDER_TIMEOUT"),
		},
		RedisAddr:         v.GetString("REDIS_ADDR"),
		AMQPURL:           v.GetString("AMQP_URL"),
		ReconcileQueue:    v.GetString("RECONCILE_QUEUE"),
		ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
		LockTTL:           v.GetDuration("LOCK_TTL"),
		StoreRetryMax:     v.GetDuration("STORE_RETRY_MAX_ELAPSED"),
	}
}
