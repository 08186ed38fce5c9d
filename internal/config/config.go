package config

import (
	"os"
	"strconv"
)

type Config struct {
	// Server
	ServerPort int
	Host       string

	// Remote cache tier (Postgres). Empty means the cache runs disabled.
	CacheDatabaseURL string

	// API Keys
	TMDBAPIKey string
	OMDBAPIKey string

	// Cron trigger
	CronSecret string

	// Operator auth
	AdminUsername     string
	AdminPasswordHash string // bcrypt hash
	JWTSecret         string

	// Deployment environment; anything other than "production" relaxes
	// cron auth and disables the remote cache tier requirement.
	Environment string

	// Population job tuning
	TargetNewRatings int
	MaxPage          int

	// Debug
	Debug bool
}

// Load builds configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		ServerPort: getEnvInt("PORT", 8080),
		Host:       getEnv("HOST", "0.0.0.0"),

		CacheDatabaseURL: getEnv("CACHE_DATABASE_URL", ""),

		TMDBAPIKey: getEnv("TMDB_API_KEY", ""),
		OMDBAPIKey: getEnv("OMDB_API_KEY", ""),

		CronSecret: getEnv("CRON_SECRET", ""),

		AdminUsername:     getEnv("ADMIN_USERNAME", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),

		Environment: getEnv("APP_ENV", "development"),

		TargetNewRatings: getEnvInt("TARGET_NEW_RATINGS", 1000),
		MaxPage:          getEnvInt("MAX_POPULAR_PAGE", 500),

		Debug: getEnv("DEBUG", "") == "true",
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
