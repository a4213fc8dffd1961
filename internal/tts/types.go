// Package tts provides text-to-speech synthesis for spoken replies.
package tts

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrProviderUnavailable = errors.New("TTS provider unavailable")
	ErrSynthesisFailed     = errors.New("synthesis failed")
	ErrEmptyText           = errors.New("no speakable text")
	ErrTimeout             = errors.New("synthesis timeout")
)

// PlayFunc routes a synthesized clip through the audio boundary.
type PlayFunc func(ctx context.Context, wav []byte) error

// Provider is the interface all TTS providers must implement
type Provider interface {
	// Name returns the provider identifier (e.g., "piper", "say")
	Name() string

	// Synthesize converts text to audio
	Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error)

	// Speak synthesizes text and plays it out loud, blocking until done
	Speak(ctx context.Context, text string) error

	// Health checks if the provider is available
	Health(ctx context.Context) error

	// Capabilities returns the provider's feature set
	Capabilities() ProviderCapabilities
}

// SynthesizeRequest represents a synthesis request
type SynthesizeRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"` // 0.5 to 2.0
}

// SynthesizeResponse represents a synthesis result
type SynthesizeResponse struct {
	Audio          []byte        `json:"audio"`
	Format         string        `json:"format"` // wav, m4a
	SampleRate     int           `json:"sample_rate"`
	ProcessingTime time.Duration `json:"processing_time"`
	Voice          string        `json:"voice"`
	Provider       string        `json:"provider"`
}

// ProviderCapabilities describes what features a provider supports
type ProviderCapabilities struct {
	SupportedLanguages []string `json:"supported_languages"`
	MaxTextLength      int      `json:"max_text_length"`
	AvgLatencyMs       int      `json:"avg_latency_ms"`
	RequiresGPU        bool     `json:"requires_gpu"`
	IsLocal            bool     `json:"is_local"`
}

// Config holds TTS configuration
type Config struct {
	Provider string  `json:"provider"` // piper, piper-server, say
	Endpoint string  `json:"endpoint"` // for piper-server
	BinPath  string  `json:"bin_path"` // for exec providers
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider: "piper",
		Endpoint: "http://localhost:5000",
		Voice:    "en_US-amy-medium",
		Speed:    1.0,
	}
}
