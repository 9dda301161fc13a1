package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel slog.Level

	StoreDriver string
	DatabaseURL string
	MongoURI    string
	MongoDB     string

	RedisAddr        string
	RedisPassword    string
	CategoryCacheTTL time.Duration

	StorageDriver string
	S3Bucket      string
	AWSRegion     string
	S3Endpoint    string
	AssetBaseURL  string
	UploadDir     string

	RabbitMQURL      string
	OperationTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Default().Warn("loading .env failed", "error", err)
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "inkwell"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		CategoryCacheTTL: getDuration("CATEGORY_CACHE_TTL", 10*time.Minute),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "s3")),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		AssetBaseURL:  getEnv("ASSET_BASE_URL", ""),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		OperationTimeout: getDuration("OPERATION_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration accepts Go duration strings ("5s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	slog.Default().Warn("invalid duration, using default", "key", key, "value", raw)
	return fallback
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
