package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram
	BotToken string
	OwnerID  int64

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Lock-wait bound for ledger transactions, milliseconds
	LockTimeoutMS int

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// RabbitMQ
	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPassword string

	// Payments
	CryptoPayToken        string
	TelegramProviderToken string
	PayCurrency           string
	StarsPerUnit          int
	ReferralPercent       int
	MinTopUp              int64
	MaxTopUp              int64

	// Ops API
	OpsPort   string
	JWTSecret string

	// Per-user rate limit, requests per minute
	RateLimitPerMinute int

	// Recovery poller
	RecoveryIntervalSec int
	PendingCutoffMin    int
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	config := &Config{
		BotToken: getEnv("BOT_TOKEN", ""),
		OwnerID:  getEnvInt64("OWNER_ID", 0),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "digishop"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		LockTimeoutMS: getEnvInt("DB_LOCK_TIMEOUT_MS", 5000),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       0,

		RabbitMQHost:     getEnv("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:     getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:     getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword: getEnv("RABBITMQ_PASSWORD", "guest"),

		CryptoPayToken:        getEnv("CRYPTO_PAY_TOKEN", ""),
		TelegramProviderToken: getEnv("TELEGRAM_PROVIDER_TOKEN", ""),
		PayCurrency:           getEnv("PAY_CURRENCY", "RUB"),
		StarsPerUnit:          getEnvInt("STARS_PER_VALUE", 2),
		ReferralPercent:       getEnvInt("REFERRAL_PERCENT", 0),
		MinTopUp:              getEnvInt64("MIN_AMOUNT", 20),
		MaxTopUp:              getEnvInt64("MAX_AMOUNT", 100000),

		OpsPort:   getEnv("OPS_PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		RecoveryIntervalSec: getEnvInt("RECOVERY_INTERVAL_SEC", 300),
		PendingCutoffMin:    getEnvInt("PENDING_CUTOFF_MIN", 60),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
