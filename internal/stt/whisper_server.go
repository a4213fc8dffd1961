package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WhisperServerProvider transcribes against a local whisper.cpp server.
type WhisperServerProvider struct {
	config     *WhisperServerConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// WhisperServerConfig holds configuration for the whisper.cpp server provider
type WhisperServerConfig struct {
	ServerURL   string  `json:"server_url"`  // e.g., "http://localhost:8080"
	Timeout     int     `json:"timeout_sec"` // HTTP timeout in seconds
	Language    string  `json:"language"`    // Default language (e.g., "en")
	Temperature float64 `json:"temperature"`
}

// DefaultWhisperServerConfig returns sensible defaults
func DefaultWhisperServerConfig() *WhisperServerConfig {
	return &WhisperServerConfig{
		ServerURL:   "http://localhost:8080",
		Timeout:     60,
		Language:    "en",
		Temperature: 0.0,
	}
}

// NewWhisperServerProvider creates a new whisper.cpp server STT provider
func NewWhisperServerProvider(config *WhisperServerConfig, logger zerolog.Logger) *WhisperServerProvider {
	if config == nil {
		config = DefaultWhisperServerConfig()
	}

	return &WhisperServerProvider{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
		logger: logger.With().Str("provider", "whisper-server").Logger(),
	}
}

// Name returns the provider identifier
func (p *WhisperServerProvider) Name() string {
	return "whisper-server"
}

// Transcribe sends the audio to the server's /inference endpoint.
func (p *WhisperServerProvider) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error) {
	if len(req.Audio) == 0 {
		return nil, ErrAudioTooShort
	}

	startTime := time.Now()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	language := req.Language
	if language == "" {
		language = p.config.Language
	}

	fields := map[string]string{
		"temperature":     fmt.Sprintf("%g", p.config.Temperature),
		"response_format": "json",
		"language":        language,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := p.config.ServerURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	p.logger.Debug().Str("url", url).Str("language", language).Int("bytes", len(req.Audio)).Msg("Sending transcription request")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisper server returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var sttResp struct {
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sttResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if sttResp.Error != "" {
		return nil, fmt.Errorf("whisper server error: %s", sttResp.Error)
	}

	processingTime := time.Since(startTime)

	p.logger.Debug().
		Str("text", sttResp.Text).
		Dur("processing_time", processingTime).
		Msg("Transcription complete")

	return &TranscribeResponse{
		Text:           sttResp.Text,
		Language:       language,
		ProcessingTime: processingTime,
		IsFinal:        true,
	}, nil
}

// Health checks if the server is reachable
func (p *WhisperServerProvider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.config.ServerURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("whisper server unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// Capabilities returns the provider's feature set
func (p *WhisperServerProvider) Capabilities() ProviderCapabilities {
	return ProviderCapabilities{
		SupportsStreaming:  false,
		SupportsTimestamps: false, // json format omits segments
		SupportedLanguages: []string{"en", "fr", "es", "de", "zh", "ja", "ko", "auto"},
		AvgLatencyMs:       800,
		RequiresGPU:        false,
		IsLocal:            true,
	}
}
