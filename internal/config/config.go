package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBDriver   string // "postgres" | "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Image generation (fal.ai)
	FalKey            string
	FalBaseURL        string
	FalModel          string
	MaxImages         int64
	BatchSize         int
	GenerationTimeout time.Duration
	GenerationLockTTL time.Duration
	StatsCacheTTL     time.Duration

	// Blob storage
	StorageBackend  string // "local" | "s3" | "minio"
	LocalAssetsPath string

	// Media S3
	MediaS3Endpoint        string
	MediaS3Region          string
	MediaS3AccessKeyID     string
	MediaS3SecretAccessKey string
	MediaS3UsePathStyle    bool
	MediaImagesBucket      string
	MediaPublicURL         string

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	// Prefill
	PrefillSchedule   string
	PrefillMinPending int64

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// lockTTLMargin covers the cap check and record inserts around the generation calls
const lockTTLMargin = time.Minute

func New() *Config {
	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "artswipe"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "artswipe"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "artswipe.db"),

		// Redis
		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Image generation
		FalKey:            getEnv("FAL_KEY", ""),
		FalBaseURL:        getEnv("FAL_BASE_URL", "https://fal.run"),
		FalModel:          getEnv("FAL_MODEL", "fal-ai/flux/schnell"),
		MaxImages:         getEnvAsInt64("MAX_IMAGES", 100),
		BatchSize:         getEnvAsInt("BATCH_SIZE", 3),
		GenerationTimeout: getEnvAsDuration("GENERATION_TIMEOUT", "2m"),
		GenerationLockTTL: getEnvAsDuration("GENERATION_LOCK_TTL", "5m"),
		StatsCacheTTL:     getEnvAsDuration("STATS_CACHE_TTL", "30s"),

		// Blob storage
		StorageBackend:  getEnv("STORAGE_BACKEND", "local"),
		LocalAssetsPath: getEnv("LOCAL_ASSETS_PATH", "./data/assets"),

		// Media S3
		MediaS3Endpoint:        getEnv("MEDIA_S3_ENDPOINT", ""),
		MediaS3Region:          getEnv("MEDIA_S3_REGION", "us-east-1"),
		MediaS3AccessKeyID:     getEnv("MEDIA_S3_ACCESS_KEY_ID", ""),
		MediaS3SecretAccessKey: getEnv("MEDIA_S3_SECRET_ACCESS_KEY", ""),
		MediaS3UsePathStyle:    getEnvAsBool("MEDIA_S3_USE_PATH_STYLE", true),
		MediaImagesBucket:      getEnv("MEDIA_IMAGES_BUCKET", "artswipe-images"),
		MediaPublicURL:         getEnv("MEDIA_PUBLIC_URL", ""),

		// MinIO
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		MinioBucket:    getEnv("MINIO_BUCKET", "images"),

		// Prefill
		PrefillSchedule:   getEnv("PREFILL_SCHEDULE", ""),
		PrefillMinPending: getEnvAsInt64("PREFILL_MIN_PENDING", 3),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type", "Accept", "Origin"}),
	}

	// the generation lock must outlive a running batch
	if cfg.GenerationTimeout > 0 && cfg.GenerationLockTTL < cfg.GenerationTimeout+lockTTLMargin {
		minTTL := cfg.GenerationTimeout + lockTTLMargin
		log.Printf("GENERATION_LOCK_TTL %s is shorter than GENERATION_TIMEOUT plus margin, using %s", cfg.GenerationLockTTL, minTTL)
		cfg.GenerationLockTTL = minTTL
	}

	return cfg
}

// IsProduction reports whether the service runs with ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
