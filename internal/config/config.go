package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	LockBackendRedis = "redis"
	LockBackendLocal = "local"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Article generation
	GeneratorProvider    string
	GeminiAPIKey         string
	GeminiModel          string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	GeneratorTimeout     time.Duration
	GeneratorConcurrency int
	GeneratorRPM         int

	// Background work. WorkerCount 0 generates articles in-process instead of through the queue.
	WorkerCount       int
	ReplenishInterval time.Duration
	UserLockBackend   string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "text"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		MigrationsDir:        getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		GeneratorProvider:    strings.ToLower(getEnvOrDefault("GENERATOR_PROVIDER", ProviderGemini)),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:         getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIModel:          getEnvOrDefault("OPENAI_MODEL", ""),
		GeneratorTimeout:     time.Duration(getEnvAsIntOrDefault("GENERATOR_TIMEOUT_SECONDS", 60)) * time.Second,
		GeneratorConcurrency: getEnvAsIntOrDefault("GENERATOR_CONCURRENT_REQUESTS", 3),
		GeneratorRPM:         getEnvAsIntOrDefault("GENERATOR_REQUESTS_PER_MINUTE", 30),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 3),
		ReplenishInterval:    time.Duration(getEnvAsIntOrDefault("REPLENISH_INTERVAL_MINUTES", 15)) * time.Minute,
		UserLockBackend:      strings.ToLower(getEnvOrDefault("USER_LOCK_BACKEND", LockBackendRedis)),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// Validate checks combinations that single env lookups cannot.
func (c *Config) Validate() error {
	switch c.GeneratorProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when GENERATOR_PROVIDER=%s", ProviderGemini)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when GENERATOR_PROVIDER=%s", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("unknown GENERATOR_PROVIDER %q", c.GeneratorProvider)
	}

	switch c.UserLockBackend {
	case LockBackendRedis, LockBackendLocal:
	default:
		return fmt.Errorf("unknown USER_LOCK_BACKEND %q", c.UserLockBackend)
	}

	if c.WorkerCount < 0 {
		return fmt.Errorf("WORKER_COUNT must not be negative, got %d", c.WorkerCount)
	}
	if c.GeneratorTimeout <= 0 {
		return fmt.Errorf("GENERATOR_TIMEOUT_SECONDS must be positive")
	}
	if c.ReplenishInterval <= 0 {
		return fmt.Errorf("REPLENISH_INTERVAL_MINUTES must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
