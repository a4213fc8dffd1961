package session

import (
	"context"

	"github.com/normanking/cortexchat/internal/audio"
	"github.com/normanking/cortexchat/internal/llm"
	"github.com/normanking/cortexchat/internal/stt"
)

// EngineTranscriber adapts an stt.Provider to the Transcriber boundary,
// applying the hallucination filter before a transcript reaches a turn.
type EngineTranscriber struct {
	provider stt.Provider
	filter   *stt.TranscriptFilter
	language string
}

func NewEngineTranscriber(provider stt.Provider, filter *stt.TranscriptFilter, language string) *EngineTranscriber {
	return &EngineTranscriber{
		provider: provider,
		filter:   filter,
		language: language,
	}
}

// Transcribe converts a capture to text. A filtered hallucination comes back
// as an empty string with no error, the same as silence.
func (t *EngineTranscriber) Transcribe(ctx context.Context, cap *audio.Capture) (string, error) {
	req := &stt.TranscribeRequest{
		Audio:      cap.WAV,
		Format:     "wav",
		SampleRate: cap.SampleRate,
		Channels:   cap.Channels,
		Language:   t.language,
	}

	resp, err := t.provider.Transcribe(ctx, req)
	if err != nil {
		return "", err
	}

	if t.filter != nil && !t.filter.FilterResponse(resp) {
		return "", nil
	}
	return resp.Text, nil
}

// EngineResponder adapts an llm.Provider to the Responder boundary.
type EngineResponder struct {
	provider llm.Provider
}

func NewEngineResponder(provider llm.Provider) *EngineResponder {
	return &EngineResponder{provider: provider}
}

func (r *EngineResponder) Chat(ctx context.Context, model, prompt string) (string, error) {
	resp, err := r.provider.Chat(ctx, &llm.ChatRequest{
		Model:  model,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
