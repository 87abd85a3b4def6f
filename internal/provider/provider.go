// Package provider builds the configured llm.Client.
package provider

import (
	"log/slog"
	"time"

	"github.com/ashureev/devgenie/internal/config"
	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/llm/anthropic"
	"github.com/ashureev/devgenie/internal/llm/gemini"
	"github.com/ashureev/devgenie/internal/llm/ollama"
	"github.com/ashureev/devgenie/internal/llm/openai"
)

// New returns a client for cfg.Provider. When credentials are missing it
// returns an llm.Unconfigured client instead of failing, so callers can still
// serve the UI and report the problem per request.
func New(cfg config.LLMConfig, timeout time.Duration) llm.Client {
	gen := llm.GenerationConfig{
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		TopK:            cfg.TopK,
	}

	if cfg.Provider != "ollama" && cfg.APIKey() == "" {
		slog.Warn("No API key configured, model calls will fail", "provider", cfg.Provider)
		return llm.Unconfigured{Provider: cfg.Provider, Reason: "missing API key"}
	}

	switch cfg.Provider {
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.Model, cfg.BaseURL, gen, timeout)
	case "openrouter":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.OpenRouterBaseURL
		}
		model := cfg.Model
		if model == "" {
			model = openai.OpenRouterModel
		}
		return openai.New(cfg.OpenRouterAPIKey, model, baseURL, gen, timeout,
			openai.WithName("openrouter"),
			openai.WithHeader("X-Title", cfg.AppTitle),
		)
	case "anthropic":
		return anthropic.New(cfg.AnthropicAPIKey, cfg.Model, cfg.BaseURL, gen, timeout)
	case "ollama":
		c, err := ollama.New(cfg.OllamaHost, cfg.Model, gen, timeout)
		if err != nil {
			slog.Error("Failed to initialize ollama client", "error", err)
			return llm.Unconfigured{Provider: "ollama", Reason: err.Error()}
		}
		return c
	default:
		return gemini.New(cfg.GeminiAPIKey, cfg.Model, cfg.BaseURL, gen, timeout)
	}
}
