package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string
	SQLitePath  string

	// Redis configuration
	RedisURL string

	// Remote analysis API
	AnalysisAPIURL         string
	AnalysisTimeoutSeconds int

	// Payment configuration
	PublicBaseURL string
	TossClientKey string

	// Admin / CORS
	AdminAPIKey string
	CORSOrigins []string

	// Cache and lock lifetimes
	RecordCacheMinutes    int
	GenerationLockMinutes int
}

// Load reads configuration from the environment, loading .env first when present
func Load() *Config {
	// Ignore error if .env file doesn't exist
	_ = godotenv.Load()

	return &Config{
		Port:                   getEnv("PORT", "8080"),
		Mode:                   getEnv("GIN_MODE", "debug"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		SQLitePath:             getEnv("SQLITE_PATH", "fortune-report.db"),
		RedisURL:               getEnv("REDIS_URL", ""),
		AnalysisAPIURL:         getEnv("ANALYSIS_API_URL", "http://localhost:8000"),
		AnalysisTimeoutSeconds: getEnvInt("ANALYSIS_TIMEOUT_SECONDS", 0),
		PublicBaseURL:          strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		TossClientKey:          getEnv("TOSS_CLIENT_KEY", ""),
		AdminAPIKey:            getEnv("ADMIN_API_KEY", ""),
		CORSOrigins:            getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RecordCacheMinutes:     getEnvInt("RECORD_CACHE_MINUTES", 10),
		GenerationLockMinutes:  getEnvInt("GENERATION_LOCK_MINUTES", 5),
	}
}

// AnalysisTimeout is zero when no client-side timeout is configured
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutSeconds) * time.Second
}

func (c *Config) RecordCacheTTL() time.Duration {
	return time.Duration(c.RecordCacheMinutes) * time.Minute
}

func (c *Config) GenerationLockTTL() time.Duration {
	return time.Duration(c.GenerationLockMinutes) * time.Minute
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
