package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OllamaProvider talks to a local Ollama server over its native API.
type OllamaProvider struct {
	config *Config
	client *http.Client
	logger zerolog.Logger
}

// NewOllamaProvider creates a new Ollama chat provider
func NewOllamaProvider(config *Config, logger zerolog.Logger) *OllamaProvider {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Endpoint == "" {
		config.Endpoint = "http://localhost:11434"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &OllamaProvider{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("provider", "ollama").Logger(),
	}
}

// Name returns the provider identifier
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Chat sends one prompt to /api/chat and returns the reply
func (p *OllamaProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return nil, fmt.Errorf("%w: no model selected", ErrModelUnavailable)
	}

	messages := []map[string]string{}
	system := req.System
	if system == "" {
		system = p.config.SystemPrompt
	}
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	reqBody := map[string]interface{}{
		"model":    model,
		"messages": messages,
		"stream":   false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	p.logger.Debug().Str("model", model).Int("promptLen", len(req.Prompt)).Msg("Sending chat request")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (is Ollama running?)", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: model '%s' not found. Run 'ollama pull %s' to install it",
				ErrModelUnavailable, model, model)
		}
		return nil, fmt.Errorf("Ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Model   string `json:"model"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		Done          bool   `json:"done"`
		TotalDuration int64  `json:"total_duration"`
		EvalCount     int    `json:"eval_count"`
		Error         string `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if result.Error != "" {
		if strings.Contains(result.Error, "not found") || strings.Contains(result.Error, "does not exist") {
			return nil, fmt.Errorf("%w: model '%s' not found. Run 'ollama pull %s' to install it",
				ErrModelUnavailable, model, model)
		}
		return nil, fmt.Errorf("Ollama error: %s", result.Error)
	}

	text := strings.TrimSpace(result.Message.Content)
	if text == "" {
		return nil, ErrEmptyReply
	}

	chatResp := &ChatResponse{
		Text:          text,
		Model:         result.Model,
		TotalDuration: time.Duration(result.TotalDuration),
		EvalCount:     result.EvalCount,
	}

	p.logger.Debug().
		Str("model", chatResp.Model).
		Int("replyLen", len(chatResp.Text)).
		Dur("total_duration", chatResp.TotalDuration).
		Msg("Chat complete")

	return chatResp, nil
}

// Health checks that the Ollama server answers
func (p *OllamaProvider) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", p.config.Endpoint+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v (is Ollama running?)", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrEngineUnavailable, resp.StatusCode)
	}
	return nil
}
