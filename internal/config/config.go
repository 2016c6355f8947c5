package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// AI service
	GeminiAPIKey    string
	GeminiTier      string
	AnalysisModel   string
	EmbeddingsModel string

	// Vector index
	PineconeAPIKey    string
	PineconeIndex     string
	PineconeNamespace string

	// Redis (cache + task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Cache behaviour
	CacheTTLSeconds int

	// HTTP server
	Port        string
	GinMode     string
	CORSOrigins []string

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry; tracing is disabled when the endpoint is empty
	OTLPEndpoint string

	// Async ingest worker
	WorkerConcurrency int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),
		AnalysisModel:   getEnv("GEMINI_ANALYSIS_MODEL", "gemini-2.0-flash"),
		EmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndex:     getEnv("PINECONE_INDEX", "content-embeddings"),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CacheTTLSeconds: getEnvInt("CACHE_TTL", 3600),

		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 20),
	}

	// Validate required credentials up front; a missing one is a startup
	// failure, never a per-request error.
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.PineconeAPIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY is required - set it in .env file")
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
