package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API     APIConfig
	Session SessionConfig
	FakeAPI FakeAPIConfig
	CORS    CORSConfig
	Logging LoggingConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	InitData        string
	RefreshDebounce time.Duration
	EventBuffer     int
}

type FakeAPIConfig struct {
	Host            string
	Port            string
	BotToken        string
	BotUsername     string
	JWTSecret       string
	TokenExpiration time.Duration
	InitDataMaxAge  time.Duration
	AdminTelegramID int64
	SeedCatalog     bool
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

func (c LoggingConfig) Debug() bool {
	return strings.EqualFold(c.Level, "debug")
}

func Load() (*Config, error) {
	godotenv.Load()

	baseURL := strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080/api"), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API_BASE_URL: %q", baseURL)
	}

	timeout, err := getEnvAsDuration("API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	debounce, err := getEnvAsDuration("REFRESH_DEBOUNCE", 250*time.Millisecond)
	if err != nil {
		return nil, err
	}

	tokenExp, err := getEnvAsDuration("JWT_EXPIRATION", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	maxAge, err := getEnvAsDuration("INIT_DATA_MAX_AGE", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	return &Config{
		API: APIConfig{
			BaseURL: baseURL,
			Timeout: timeout,
		},
		Session: SessionConfig{
			InitData:        getEnv("TELEGRAM_INIT_DATA", ""),
			RefreshDebounce: debounce,
			EventBuffer:     getEnvAsInt("EVENT_BUFFER", 16),
		},
		FakeAPI: FakeAPIConfig{
			Host:            getEnv("FAKE_API_HOST", "0.0.0.0"),
			Port:            getEnv("FAKE_API_PORT", "8080"),
			BotToken:        getEnv("TELEGRAM_BOT_TOKEN", "dev-bot-token"),
			BotUsername:     getEnv("TELEGRAM_BOT_USERNAME", "zg_nft_bot"),
			JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			TokenExpiration: tokenExp,
			InitDataMaxAge:  maxAge,
			AdminTelegramID: getEnvAsInt64("ADMIN_TELEGRAM_ID", 0),
			SeedCatalog:     getEnvAsBool("FAKE_API_SEED", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,X-Request-ID"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
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

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
