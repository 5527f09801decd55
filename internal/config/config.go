package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	DatabasePath string
	LogLevel     string

	// AI inference endpoint (Gemini-compatible generateContent API)
	AIServiceURL string
	AIAPIKey     string
	AIModel      string

	// Market news source (Finnhub-compatible API). When NewsAPIKey is
	// empty the service falls back to scraping NewsScrapeURL.
	NewsAPIURL    string
	NewsAPIKey    string
	NewsScrapeURL string

	// Email transport
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailName    string

	// Cron schedule for the daily news digest (server-local time)
	DigestSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/signalist.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		AIServiceURL: getEnv("AI_SERVICE_URL", "https://generativelanguage.googleapis.com"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		AIModel:      getEnv("AI_MODEL", "gemini-2.5-flash-lite"),

		NewsAPIURL:    getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		NewsAPIKey:    getEnv("FINNHUB_API_KEY", ""),
		NewsScrapeURL: getEnv("NEWS_SCRAPE_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("NODEMAILER_EMAIL", ""),
		SMTPPassword: getEnv("NODEMAILER_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "signalist@tinygift.pro"),
		EmailName:    getEnv("EMAIL_FROM_NAME", "Signalist"),

		DigestSchedule: getEnv("DIGEST_SCHEDULE", "0 12 * * *"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	// Note: AI and SMTP credentials are optional at startup; the
	// workflows degrade to fallback text / logged send failures when
	// the collaborators are unreachable.

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
