// Package llm defines the model client interface and the errors providers report.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/devgenie/internal/prompt"
)

// Client generates a text response for a prompt.
// Implementations provide the transport to a specific provider.
type Client interface {
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
	Name() string
}

// GenerationConfig holds sampling parameters shared by all providers.
type GenerationConfig struct {
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	TopK            int
}

// DefaultGenerationConfig returns the sampling parameters used when none are configured.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxOutputTokens: 8192,
		Temperature:     0.7,
		TopP:            0.95,
		TopK:            40,
	}
}

var (
	ErrNotConfigured = errors.New("model client not initialized")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrAuth          = errors.New("authentication failed")
	ErrBlocked       = errors.New("blocked by safety filters")
	ErrEmptyResponse = errors.New("empty response from model")
)

// UserMessage returns the sentence shown to the user when a model call fails.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return "Model client not initialized. Please check your API key."
	case errors.Is(err, ErrRateLimited):
		return "API rate limit exceeded. Please try again later."
	case errors.Is(err, ErrAuth):
		return "API authentication failed. Please check your API key."
	case errors.Is(err, ErrBlocked):
		return "Content was blocked by safety filters. Please try with different code."
	case errors.Is(err, ErrEmptyResponse):
		return "The model returned an empty response. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to respond. Please try again."
	}

	// Providers without structured errors only give us text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit"):
		return UserMessage(ErrRateLimited)
	case strings.Contains(msg, "api key") || strings.Contains(msg, "authentication"):
		return UserMessage(ErrAuth)
	case strings.Contains(msg, "safety"):
		return UserMessage(ErrBlocked)
	}
	return err.Error()
}

// Unconfigured is a Client whose every call fails with ErrNotConfigured.
// It lets the server start without credentials and report the problem per request.
type Unconfigured struct {
	Provider string
	Reason   string
}

// Generate always returns ErrNotConfigured.
func (u Unconfigured) Generate(context.Context, prompt.Prompt) (string, error) {
	if u.Reason != "" {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, u.Reason)
	}
	return "", ErrNotConfigured
}

// Name returns the provider name.
func (u Unconfigured) Name() string { return u.Provider }

// IsConfigured reports whether c can make real calls.
func IsConfigured(c Client) bool {
	switch c.(type) {
	case Unconfigured, *Unconfigured:
		return false
	}
	return c != nil
}
