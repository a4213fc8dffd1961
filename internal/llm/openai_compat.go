package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatProvider talks to any server exposing the OpenAI chat API,
// such as Ollama's /v1 endpoint, llama.cpp's server or LM Studio.
type OpenAICompatProvider struct {
	config *Config
	client *openai.Client
	logger zerolog.Logger
}

// NewOpenAICompatProvider creates a provider against an OpenAI-compatible endpoint
func NewOpenAICompatProvider(config *Config, logger zerolog.Logger) *OpenAICompatProvider {
	if config == nil {
		config = DefaultConfig()
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if !strings.HasSuffix(endpoint, "/v1") {
		endpoint = strings.TrimRight(endpoint, "/") + "/v1"
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// Local servers ignore the key but the client requires one.
		apiKey = "local"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = endpoint
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAICompatProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.With().Str("provider", "openai-compat").Logger(),
	}
}

// Name returns the provider identifier
func (p *OpenAICompatProvider) Name() string {
	return "openai-compat"
}

// Chat sends one prompt through the chat completions API
func (p *OpenAICompatProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return nil, fmt.Errorf("%w: no model selected", ErrModelUnavailable)
	}

	var messages []openai.ChatCompletionMessage
	system := req.System
	if system == "" {
		system = p.config.SystemPrompt
	}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	startTime := time.Now()

	p.logger.Debug().Str("model", model).Int("promptLen", len(req.Prompt)).Msg("Sending chat request")

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.HTTPStatusCode == http.StatusNotFound ||
				strings.Contains(apiErr.Message, "not found") {
				return nil, fmt.Errorf("%w: model '%s' not found", ErrModelUnavailable, model)
			}
			return nil, fmt.Errorf("chat API error: %s", apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyReply
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, ErrEmptyReply
	}

	chatResp := &ChatResponse{
		Text:          text,
		Model:         resp.Model,
		TotalDuration: time.Since(startTime),
		EvalCount:     resp.Usage.CompletionTokens,
	}

	p.logger.Debug().
		Str("model", chatResp.Model).
		Int("replyLen", len(chatResp.Text)).
		Msg("Chat complete")

	return chatResp, nil
}

// Health lists models to confirm the endpoint answers
func (p *OpenAICompatProvider) Health(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}
