package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration loaded from the environment.
type Config struct {
	Port   string
	LogEnv string

	// API key expected from callers of the /api routes
	APIKey string

	// Retell (voice provider) configuration
	RetellAPIKey         string
	RetellBaseURL        string
	RetellDefaultVoiceID string

	// OpenAI (reasoning provider) configuration
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Redis configuration for the agent cache (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// How long the manual end-call path waits for the provider webhook
	EndCallGracePeriod time.Duration

	// Webhook ingress rate limit (events per second, with equal burst)
	WebhookRateLimit float64
}

// LoadFromEnv loads the configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Port:   getEnvOrDefault("PORT", "8080"),
		LogEnv: getEnvOrDefault("LOG_ENV", "development"),

		APIKey: getEnvOrDefault("API_KEY", ""),

		RetellAPIKey:         getEnvOrDefault("RETELL_API_KEY", ""),
		RetellBaseURL:        getEnvOrDefault("RETELL_BASE_URL", ""),
		RetellDefaultVoiceID: getEnvOrDefault("RETELL_DEFAULT_VOICE_ID", "11labs-Adrian"),

		OpenAIAPIKey:  getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		EndCallGracePeriod: time.Duration(getEnvIntOrDefault("END_CALL_GRACE_SECONDS", 5)) * time.Second,

		WebhookRateLimit: getEnvFloatOrDefault("WEBHOOK_RATE_LIMIT", 50),
	}
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault gets environment variable as int or returns default value
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloatOrDefault gets environment variable as float or returns default value
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
