package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_PATH", "./data/devgenie.db")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("HISTORY_LIMIT", "10")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.HistoryLimit != 10 || cfg.SessionTTL != 24*time.Hour {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.LLM.MaxOutputTokens != 8192 || cfg.LLM.TopK != 40 {
		t.Errorf("LLM defaults = %+v", cfg.LLM)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenRouter")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "openrouter" || cfg.LLM.APIKey() != "or-key" {
		t.Errorf("provider = %q key = %q", cfg.LLM.Provider, cfg.LLM.APIKey())
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("Temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.RateLimit.WindowDuration != 30*time.Second {
		t.Errorf("WindowDuration = %v", cfg.RateLimit.WindowDuration)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "watson")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "many")
	t.Setenv("LLM_TOP_P", "high")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HistoryLimit != 10 || cfg.LLM.TopP != 0.95 {
		t.Errorf("fallbacks not applied: limit=%d topP=%v", cfg.HistoryLimit, cfg.LLM.TopP)
	}
}

func TestIsDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg := &Config{FrontendURL: "https://devgenie.example"}
	if cfg.IsDevelopment() {
		t.Error("production URL should not be development")
	}
	cfg.FrontendURL = "http://localhost:5173"
	if !cfg.IsDevelopment() {
		t.Error("localhost should be development")
	}
}
