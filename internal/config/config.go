package config

import (
	"os"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	// Optional JWKS endpoint for bearer-token auth. Empty disables auth
	// (local single-user mode).
	JWKSURL string
	// AI configuration
	OpenAIAPIKey    string
	AnalyzerModel   string
	ComparatorModel string
	// Snapshot storage: "memory", "badger" or "postgres"
	StorageBackend string
	DatabaseURL    string
	BadgerPath     string
	// Quiet period before a scheduled snapshot is written
	SaveDebounce time.Duration
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		JWKSURL:         getEnv("JWKS_URL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnalyzerModel:   getEnv("ANALYZER_MODEL", "gpt-4o-mini"),
		ComparatorModel: getEnv("COMPARATOR_MODEL", "gpt-4o-mini"),
		StorageBackend:  getEnv("STORAGE_BACKEND", "badger"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		BadgerPath:      getEnv("BADGER_PATH", "data/canopy"),
		SaveDebounce:    getDuration("SAVE_DEBOUNCE", DefaultSaveDebounce),
		Debug:           getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
