package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PiperServerProvider uses a local piper HTTP server for TTS.
//
// The server (python -m piper.http_server) takes the text as a plain POST
// body and answers with a complete WAV file.
type PiperServerProvider struct {
	config     *PiperServerConfig
	httpClient *http.Client
	play       PlayFunc
	logger     zerolog.Logger
}

// PiperServerConfig holds configuration for the piper HTTP server provider
type PiperServerConfig struct {
	ServerURL string `json:"server_url"` // e.g., "http://localhost:5000"
	Timeout   int    `json:"timeout_sec"`
}

// DefaultPiperServerConfig returns sensible defaults
func DefaultPiperServerConfig() *PiperServerConfig {
	return &PiperServerConfig{
		ServerURL: "http://localhost:5000",
		Timeout:   30,
	}
}

// NewPiperServerProvider creates a new piper HTTP server TTS provider
func NewPiperServerProvider(config *PiperServerConfig, play PlayFunc, logger zerolog.Logger) *PiperServerProvider {
	if config == nil {
		config = DefaultPiperServerConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 30
	}

	return &PiperServerProvider{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
		play:   play,
		logger: logger.With().Str("provider", "piper-server").Logger(),
	}
}

// Name returns the provider identifier
func (p *PiperServerProvider) Name() string {
	return "piper-server"
}

// Synthesize converts text to audio via the piper HTTP server
func (p *PiperServerProvider) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	startTime := time.Now()

	text := sanitizeForSpeech(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	url := fmt.Sprintf("%s/", strings.TrimRight(p.config.ServerURL, "/"))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/plain")

	p.logger.Debug().
		Str("url", url).
		Int("textLen", len(text)).
		Msg("Sending TTS request to piper server")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: piper server returned status %d: %s",
			ErrSynthesisFailed, resp.StatusCode, string(bodyBytes))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: piper server returned no audio", ErrSynthesisFailed)
	}

	processingTime := time.Since(startTime)

	p.logger.Info().
		Int("audio_bytes", len(audioData)).
		Dur("processing_time", processingTime).
		Msg("TTS synthesis complete")

	return &SynthesizeResponse{
		Audio:          audioData,
		Format:         "wav",
		SampleRate:     22050,
		ProcessingTime: processingTime,
		Voice:          req.Voice,
		Provider:       p.Name(),
	}, nil
}

// Speak synthesizes text and plays it through the audio boundary
func (p *PiperServerProvider) Speak(ctx context.Context, text string) error {
	if p.play == nil {
		return fmt.Errorf("%w: no playback sink configured", ErrProviderUnavailable)
	}

	resp, err := p.Synthesize(ctx, &SynthesizeRequest{Text: text})
	if err != nil {
		return err
	}
	return p.play(ctx, resp.Audio)
}

// Health checks if the piper server is reachable
func (p *PiperServerProvider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.config.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	// The server only answers requests that carry text, so any response
	// below 500 means it is up.
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("piper server unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// Capabilities returns the provider's feature set
func (p *PiperServerProvider) Capabilities() ProviderCapabilities {
	return ProviderCapabilities{
		SupportedLanguages: []string{"en"},
		MaxTextLength:      1000,
		AvgLatencyMs:       300,
		RequiresGPU:        false,
		IsLocal:            true,
	}
}
