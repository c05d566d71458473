package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

type Config struct {
	ServerPort  string
	Environment string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	AllowMemoryRateLimit bool

	AIAPIKey  string
	AIBaseURL string
	ModelName string

	AITimeout          time.Duration
	CoverLetterTimeout time.Duration
	ResumeTimeout      time.Duration

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	godotenv.Load()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),

		AllowMemoryRateLimit: getEnvBool("ALLOW_IN_MEMORY_RATE_LIMIT", false),

		AIAPIKey:  getEnv("AI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
		AIBaseURL: getEnv("AI_BASE_URL", defaultAIBaseURL),
		ModelName: getEnv("MODEL_NAME", "gemini-2.5-flash"),

		AITimeout:          getEnvMillis("AI_TIMEOUT_MS", 30*time.Second),
		CoverLetterTimeout: getEnvMillis("COVER_LETTER_ROUTE_TIMEOUT_MS", 35*time.Second),
		ResumeTimeout:      getEnvMillis("RESUME_ROUTE_TIMEOUT_MS", 45*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}, nil
}

// Production reports whether the deployment must fail closed on missing
// infrastructure.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	ms, err := strconv.Atoi(os.Getenv(key))
	if err != nil || ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
