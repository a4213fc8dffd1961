// Package tts provides a Piper neural TTS provider using local ONNX models.
// Piper is a fast, local text-to-speech system with high quality voices.
// https://github.com/rhasspy/piper
package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PiperProvider implements TTS by running the piper binary
type PiperProvider struct {
	logger     zerolog.Logger
	config     *PiperConfig
	play       PlayFunc
	binaryPath string
}

// PiperConfig holds Piper TTS configuration
type PiperConfig struct {
	BinaryPath string  `json:"binary_path"` // Path to piper binary
	VoicesDir  string  `json:"voices_dir"`  // Directory containing .onnx models
	Voice      string  `json:"voice"`       // Voice model name (e.g., "en_US-amy-medium")
	Speed      float64 `json:"speed"`       // 1.0 = normal
}

// DefaultPiperConfig returns sensible defaults for Piper TTS
func DefaultPiperConfig() *PiperConfig {
	homeDir, _ := os.UserHomeDir()
	return &PiperConfig{
		VoicesDir: filepath.Join(homeDir, ".cortexchat", "voices"),
		Voice:     "en_US-amy-medium",
		Speed:     1.0,
	}
}

// NewPiperProvider creates a new Piper TTS provider. The play function is
// used by Speak to route synthesized audio through the audio boundary.
func NewPiperProvider(logger zerolog.Logger, config *PiperConfig, play PlayFunc) *PiperProvider {
	if config == nil {
		config = DefaultPiperConfig()
	}
	if config.Speed == 0 {
		config.Speed = 1.0
	}

	binaryPath := config.BinaryPath
	if binaryPath == "" {
		if path, err := exec.LookPath("piper"); err == nil {
			binaryPath = path
		} else {
			homeDir, _ := os.UserHomeDir()
			candidates := []string{
				filepath.Join(homeDir, ".local/bin/piper"),
				"/usr/local/bin/piper",
				"/opt/homebrew/bin/piper",
			}
			for _, path := range candidates {
				if _, err := os.Stat(path); err == nil {
					binaryPath = path
					break
				}
			}
		}
	}

	return &PiperProvider{
		logger:     logger.With().Str("provider", "piper").Logger(),
		config:     config,
		play:       play,
		binaryPath: binaryPath,
	}
}

// Name returns the provider identifier
func (p *PiperProvider) Name() string {
	return "piper"
}

// IsAvailable checks if piper is installed and the voice model exists
func (p *PiperProvider) IsAvailable() bool {
	if p.binaryPath == "" {
		p.logger.Debug().Msg("Piper binary not found")
		return false
	}
	if _, err := os.Stat(p.binaryPath); err != nil {
		p.logger.Debug().Str("path", p.binaryPath).Msg("Piper binary not accessible")
		return false
	}
	if _, err := os.Stat(p.modelPath(p.config.Voice)); err != nil {
		p.logger.Debug().Str("voice", p.config.Voice).Msg("Piper voice model not found")
		return false
	}
	return true
}

// Synthesize converts text to audio using the piper binary
func (p *PiperProvider) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("%w: piper binary or voice model missing", ErrProviderUnavailable)
	}

	startTime := time.Now()

	text := sanitizeForSpeech(req.Text)
	if len(text) > 500 {
		// Piper struggles with very long input, keep replies speakable.
		text = text[:500] + "..."
		p.logger.Debug().Int("original", len(req.Text)).Int("truncated", len(text)).Msg("Truncated text for Piper")
	}
	if len(text) == 0 {
		return nil, ErrEmptyText
	}

	voice := req.Voice
	if voice == "" {
		voice = p.config.Voice
	}
	modelPath := p.modelPath(voice)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: voice model not found: %s", ErrProviderUnavailable, modelPath)
	}

	tmpFile, err := os.CreateTemp("", "cortexchat_tts_*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	args := []string{
		"--model", modelPath,
		"--output_file", tmpPath,
	}

	speed := req.Speed
	if speed == 0 {
		speed = p.config.Speed
	}
	if speed != 1.0 && speed > 0 {
		// Piper controls pace via length_scale; larger is slower.
		args = append(args, "--length_scale", strconv.FormatFloat(1.0/speed, 'f', 2, 64))
	}

	p.logger.Debug().
		Str("voice", voice).
		Int("textLen", len(text)).
		Msg("Synthesizing with Piper TTS")

	cmd := exec.CommandContext(ctx, p.binaryPath, args...)
	cmd.Stdin = bytes.NewBufferString(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.logger.Error().
			Err(err).
			Str("stderr", stderr.String()).
			Msg("Piper TTS failed")
		return nil, fmt.Errorf("%w: piper: %v", ErrSynthesisFailed, err)
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
		Msg("Piper TTS synthesis complete")

	return &SynthesizeResponse{
		Audio:          audioData,
		Format:         "wav",
		SampleRate:     22050, // Piper default
		ProcessingTime: processingTime,
		Voice:          voice,
		Provider:       p.Name(),
	}, nil
}

// Speak synthesizes text and plays it through the audio boundary
func (p *PiperProvider) Speak(ctx context.Context, text string) error {
	if p.play == nil {
		return fmt.Errorf("%w: no playback sink configured", ErrProviderUnavailable)
	}

	resp, err := p.Synthesize(ctx, &SynthesizeRequest{Text: text})
	if err != nil {
		return err
	}
	return p.play(ctx, resp.Audio)
}

// modelPath returns the full path to a Piper voice model
func (p *PiperProvider) modelPath(voice string) string {
	return filepath.Join(p.config.VoicesDir, voice+".onnx")
}

// Health checks if Piper TTS is available
func (p *PiperProvider) Health(ctx context.Context) error {
	if !p.IsAvailable() {
		return ErrProviderUnavailable
	}
	return nil
}

// Capabilities returns Piper TTS capabilities
func (p *PiperProvider) Capabilities() ProviderCapabilities {
	return ProviderCapabilities{
		SupportedLanguages: []string{"en"},
		MaxTextLength:      500,
		AvgLatencyMs:       100,
		RequiresGPU:        false,
		IsLocal:            true,
	}
}

// sanitizeForSpeech cleans LLM output so it reads well aloud
func sanitizeForSpeech(text string) string {
	// Remove markdown formatting
	text = regexp.MustCompile(`\*\*([^*]+)\*\*`).ReplaceAllString(text, "$1")
	text = regexp.MustCompile(`\*([^*]+)\*`).ReplaceAllString(text, "$1")
	text = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`).ReplaceAllString(text, "$1")

	// Drop code entirely, nobody wants it read out
	text = regexp.MustCompile("(?s)```[^`]*```").ReplaceAllString(text, "")
	text = regexp.MustCompile("`[^`]+`").ReplaceAllString(text, "")

	// Remove bullet points and numbering
	text = regexp.MustCompile(`(?m)^[\s]*[-*•]\s*`).ReplaceAllString(text, "")
	text = regexp.MustCompile(`(?m)^[\s]*\d+\.\s*`).ReplaceAllString(text, "")

	// Collapse whitespace
	text = regexp.MustCompile(`\s+`).ReplaceAllString(text, " ")

	text = strings.ReplaceAll(text, "\"", "'")
	text = strings.ReplaceAll(text, "\\", "")
	text = strings.ReplaceAll(text, "\t", " ")

	return strings.TrimSpace(text)
}
