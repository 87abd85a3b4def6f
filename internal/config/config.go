// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	FrontendURL  string
	DBPath       string
	LogLevel     slog.Level
	SessionTTL   time.Duration
	HistoryLimit int
	CORSOrigins  []string
	LLM          LLMConfig
	Limits       LimitsConfig
	RateLimit    RateLimitConfig
	Timeout      TimeoutConfig
	Retry        RetryConfig
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider         string // gemini, openai, openrouter, anthropic, ollama
	Model            string
	BaseURL          string
	GeminiAPIKey     string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	OllamaHost       string
	AppTitle         string
	MaxOutputTokens  int
	Temperature      float64
	TopP             float64
	TopK             int
}

// LimitsConfig bounds user input.
type LimitsConfig struct {
	MaxCodeLength      int
	MaxFileSize        int64
	MaxUploadFiles     int
	MaxRequestBodySize int64
	PreviewLength      int
}

// RateLimitConfig controls per-user throttling of model calls.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// TimeoutConfig holds timeouts for outbound calls and health checks.
type TimeoutConfig struct {
	LLMRequest  time.Duration
	HealthCheck time.Duration
	Shutdown    time.Duration
}

// RetryConfig controls retries of SQLite writes under lock contention.
type RetryConfig struct {
	DatabaseMaxRetries     int
	DatabaseRetryBaseDelay time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		DBPath:       getEnv("DB_PATH", "./data/devgenie.db"),
		LogLevel:     getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		SessionTTL:   getEnvDuration("SESSION_TTL", 24*time.Hour),
		HistoryLimit: getEnvInt("HISTORY_LIMIT", 10),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
		LLM: LLMConfig{
			Provider:         strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			Model:            getEnv("LLM_MODEL", ""),
			BaseURL:          getEnv("LLM_BASE_URL", ""),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
			AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			OllamaHost:       getEnv("OLLAMA_HOST", ""),
			AppTitle:         getEnv("APP_TITLE", "DevGenie"),
			MaxOutputTokens:  getEnvInt("LLM_MAX_OUTPUT_TOKENS", 8192),
			Temperature:      getEnvFloat("LLM_TEMPERATURE", 0.7),
			TopP:             getEnvFloat("LLM_TOP_P", 0.95),
			TopK:             getEnvInt("LLM_TOP_K", 40),
		},
		Limits: LimitsConfig{
			MaxCodeLength:      getEnvInt("MAX_CODE_LENGTH", 50000),
			MaxFileSize:        int64(getEnvInt("MAX_FILE_SIZE", 1<<20)),
			MaxUploadFiles:     getEnvInt("MAX_UPLOAD_FILES", 10),
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 12<<20)),
			PreviewLength:      1000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Timeout: TimeoutConfig{
			LLMRequest:  getEnvDuration("LLM_TIMEOUT", 2*time.Minute),
			HealthCheck: 5 * time.Second,
			Shutdown:    10 * time.Second,
		},
		Retry: RetryConfig{
			DatabaseMaxRetries:     3,
			DatabaseRetryBaseDelay: 50 * time.Millisecond,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be > 0")
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "openrouter", "anthropic", "ollama":
	default:
		return fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLM.Provider)
	}
	if c.Limits.MaxCodeLength <= 0 {
		return fmt.Errorf("MAX_CODE_LENGTH must be > 0")
	}
	if c.Limits.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// APIKey returns the key for the configured provider. Ollama needs none.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "openrouter":
		return c.OpenRouterAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	}
	return ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
