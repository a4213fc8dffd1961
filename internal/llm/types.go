// Package llm provides chat providers for local language model engines.
package llm

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrEngineUnavailable = errors.New("LLM engine unavailable")
	ErrModelUnavailable  = errors.New("model unavailable")
	ErrEmptyReply        = errors.New("engine returned empty reply")
)

// Provider is the interface all chat providers must implement
type Provider interface {
	// Name returns the provider identifier (e.g., "ollama", "openai-compat")
	Name() string

	// Chat sends one prompt and returns the model's reply
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks if the engine is reachable
	Health(ctx context.Context) error
}

// ChatRequest represents a single-turn chat request
type ChatRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
}

// ChatResponse represents the engine's reply
type ChatResponse struct {
	Text          string        `json:"text"`
	Model         string        `json:"model"`
	TotalDuration time.Duration `json:"total_duration"`
	EvalCount     int           `json:"eval_count"` // tokens generated, if reported
}

// Config holds LLM provider configuration
type Config struct {
	Provider     string        `json:"provider"` // ollama, openai-compat
	Endpoint     string        `json:"endpoint"`
	Model        string        `json:"model"`
	APIKey       string        `json:"api_key,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	Timeout      time.Duration `json:"timeout"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider: "ollama",
		Endpoint: "http://localhost:11434",
		Timeout:  120 * time.Second,
	}
}
