package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Port               string
	GinMode            string
	LogLevel           string
	DBDriver           string
	DBDSN              string
	JWTSecret          string
	TokenExpires       time.Duration
	AMQPURL            string
	AMQPExchange       string
	LocationTTL        time.Duration
	LocationCapacity   int
	TabSweepInterval   time.Duration
	TabSweepGrace      time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
	CORSOrigin         string
}

// Load reads environment variables (and .env when present) and returns a populated Config.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBDriver:           getEnv("DB_DRIVER", "mysql"),
		DBDSN:              getEnv("DB_DSN", "root:root@tcp(127.0.0.1:3306)/restaurant_pos?charset=utf8mb4&parseTime=True&loc=Local"),
		JWTSecret:          getEnv("JWT_SECRET", "change-me"),
		TokenExpires:       time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,
		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "pos_events"),
		LocationTTL:        getEnvDuration("DRIVER_LOCATION_TTL", 10*time.Minute),
		LocationCapacity:   getEnvInt("DRIVER_LOCATION_CAPACITY", 1000),
		TabSweepInterval:   getEnvDuration("TAB_SWEEP_INTERVAL", time.Minute),
		TabSweepGrace:      getEnvDuration("TAB_SWEEP_GRACE", 2*time.Hour),
		RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 20),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
		CORSOrigin:         getEnv("CORS_ORIGIN", "http://127.0.0.1:5500"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "2h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
