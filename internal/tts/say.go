// Package tts provides a macOS native TTS provider using the 'say' command.
// This is a zero-install fallback that uses high-quality system voices.
package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// SayProvider implements TTS using the macOS 'say' command
type SayProvider struct {
	logger zerolog.Logger
	config *SayConfig
}

// SayConfig holds macOS TTS configuration
type SayConfig struct {
	Voice string `json:"voice"` // Samantha, Daniel, etc.
	Rate  int    `json:"rate"`  // Words per minute (default 175)
}

// DefaultSayConfig returns sensible defaults for macOS TTS
func DefaultSayConfig() *SayConfig {
	return &SayConfig{
		Voice: "Samantha",
		Rate:  175,
	}
}

// NewSayProvider creates a new macOS TTS provider
func NewSayProvider(logger zerolog.Logger, config *SayConfig) *SayProvider {
	if config == nil {
		config = DefaultSayConfig()
	}

	return &SayProvider{
		logger: logger.With().Str("provider", "say").Logger(),
		config: config,
	}
}

// Name returns the provider identifier
func (p *SayProvider) Name() string {
	return "say"
}

// IsAvailable checks if this is macOS and the 'say' command exists
func (p *SayProvider) IsAvailable() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	_, err := exec.LookPath("say")
	return err == nil
}

// Synthesize converts text to audio using the 'say' command
func (p *SayProvider) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("%w: say requires macOS", ErrProviderUnavailable)
	}

	startTime := time.Now()

	text := sanitizeForSpeech(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	voice := req.Voice
	if voice == "" {
		voice = p.config.Voice
	}

	tmpFile, err := os.CreateTemp("", "cortexchat_say_*.m4a")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	args := []string{
		"-v", voice,
		"-o", tmpPath,
		"--data-format=aac",
	}
	if p.config.Rate != 175 && p.config.Rate > 0 {
		args = append(args, "-r", fmt.Sprintf("%d", p.config.Rate))
	}
	args = append(args, text)

	p.logger.Debug().
		Str("voice", voice).
		Int("textLen", len(text)).
		Msg("Synthesizing with macOS TTS")

	cmd := exec.CommandContext(ctx, "say", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("output", string(output)).
			Msg("macOS TTS failed")
		return nil, fmt.Errorf("%w: say: %v", ErrSynthesisFailed, err)
	}

	audioData, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	processingTime := time.Since(startTime)

	p.logger.Info().
		Str("voice", voice).
		Int("audioBytes", len(audioData)).
		Dur("processingTime", processingTime).
		Msg("macOS TTS synthesis complete")

	return &SynthesizeResponse{
		Audio:          audioData,
		Format:         "m4a",
		SampleRate:     22050,
		ProcessingTime: processingTime,
		Voice:          voice,
		Provider:       p.Name(),
	}, nil
}

// Speak speaks text directly through system audio, blocking until complete
func (p *SayProvider) Speak(ctx context.Context, text string) error {
	if !p.IsAvailable() {
		return fmt.Errorf("%w: say requires macOS", ErrProviderUnavailable)
	}

	text = sanitizeForSpeech(text)
	if text == "" {
		return ErrEmptyText
	}

	args := []string{"-v", p.config.Voice}
	if p.config.Rate != 175 && p.config.Rate > 0 {
		args = append(args, "-r", fmt.Sprintf("%d", p.config.Rate))
	}
	args = append(args, text)

	p.logger.Debug().
		Str("voice", p.config.Voice).
		Int("textLen", len(text)).
		Msg("Speaking directly with macOS TTS")

	cmd := exec.CommandContext(ctx, "say", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: say: %v", ErrSynthesisFailed, err)
	}
	return nil
}

// Health checks if macOS TTS is available
func (p *SayProvider) Health(ctx context.Context) error {
	if !p.IsAvailable() {
		return ErrProviderUnavailable
	}
	return nil
}

// Capabilities returns macOS TTS capabilities
func (p *SayProvider) Capabilities() ProviderCapabilities {
	return ProviderCapabilities{
		SupportedLanguages: []string{"en"},
		MaxTextLength:      10000,
		AvgLatencyMs:       200,
		RequiresGPU:        false,
		IsLocal:            true,
	}
}
