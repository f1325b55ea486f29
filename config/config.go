package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HttpPort     string
	AppEnv       string
	AllowOrigins string

	// tree store: "postgres" or "memory"
	StoreType string
	SeedDemo  bool
	CacheTTL  time.Duration

	// S3/MinIO, used for snapshot export and backups
	BucketEndpoint  string
	BucketAccessID  string
	BucketAccessKey string
	BucketName      string
	BucketRegion    string
	UseSSL          bool   // MinIO: false, S3: true
	StorageType     string // "minio", "s3" or "" to disable
	ExportURLTTL    time.Duration

	// Redis
	RedisURL      string
	RedisPassword string

	// Postgres
	Host     string
	User     string
	Password string
	DBName   string
	Port     string

	// completion provider defaults
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	LLMModel       string
	LLMTemperature float32
	LLMMaxTokens   int
	LLMTimeout     time.Duration
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		HttpPort:        getEnv("PORT", "3000"),
		AppEnv:          os.Getenv("APP_ENV"),
		AllowOrigins:    getEnv("ALLOWORIGINS", "*"),
		StoreType:       getEnv("STORE_TYPE", "postgres"),
		SeedDemo:        getBool("SEED_DEMO", true),
		CacheTTL:        getDuration("CACHE_TTL", 30*time.Minute),
		BucketEndpoint:  os.Getenv("BUCKET_ENDPOINT"),
		BucketAccessID:  os.Getenv("BUCKET_ACCESS_ID"),
		BucketAccessKey: os.Getenv("BUCKET_ACCESS_KEY"),
		BucketName:      getEnv("BUCKET_NAME", "conversation-trees"),
		BucketRegion:    os.Getenv("BUCKET_REGION"),
		UseSSL:          getBool("BUCKET_USE_SSL", false),
		StorageType:     os.Getenv("STORAGE_TYPE"),
		ExportURLTTL:    getDuration("EXPORT_URL_TTL", 15*time.Minute),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		Host:            os.Getenv("PG_HOST"),
		User:            os.Getenv("PG_USER"),
		Password:        os.Getenv("PG_PASSWORD"),
		DBName:          os.Getenv("PG_DB"),
		Port:            getEnv("PG_PORT", "5432"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTemperature:  float32(getFloat("LLM_TEMPERATURE", 0.7)),
		LLMMaxTokens:    getInt("LLM_MAX_TOKENS", 4000),
		LLMTimeout:      getDuration("LLM_TIMEOUT", 2*time.Minute),
	}
}

func (c *Config) IsProd() bool {
	return c.AppEnv == "prod"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
