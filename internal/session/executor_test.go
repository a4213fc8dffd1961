package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexchat/internal/audio"
	"github.com/normanking/cortexchat/internal/llm"
	"github.com/normanking/cortexchat/internal/mode"
	"github.com/normanking/cortexchat/internal/stt"
)

type stubCapturer struct {
	capture *audio.Capture
	err     error
	calls   int
}

func (s *stubCapturer) Capture(ctx context.Context, seconds int) (*audio.Capture, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.capture, nil
}

type stubTranscriber struct {
	text  string
	err   error
	calls int
}

func (s *stubTranscriber) Transcribe(ctx context.Context, cap *audio.Capture) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type stubResponder struct {
	reply     string
	err       error
	calls     int
	gotModel  string
	gotPrompt string
}

func (s *stubResponder) Chat(ctx context.Context, model, prompt string) (string, error) {
	s.calls++
	s.gotModel = model
	s.gotPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubSpeaker struct {
	err    error
	spoken []string
}

func (s *stubSpeaker) Speak(ctx context.Context, text string) error {
	s.spoken = append(s.spoken, text)
	return s.err
}

func newTestSession(model string, m mode.Mode) *Session {
	modes := mode.NewController(m, nil, zerolog.Nop())
	sess := NewSession(modes)
	sess.SelectedModel = model
	return sess
}

func testCapture() *audio.Capture {
	return &audio.Capture{
		WAV:        []byte("RIFF fake wav payload"),
		SampleRate: 16000,
		Channels:   1,
	}
}

func TestRunTurn_TextCompleted(t *testing.T) {
	out := &bytes.Buffer{}
	responder := &stubResponder{reply: "hi there"}
	speaker := &stubSpeaker{}
	exec := NewExecutor(ExecutorOptions{
		Responder: responder,
		Speaker:   speaker,
		Out:       out,
		Logger:    zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Text)
	turn, err := exec.RunTurn(context.Background(), sess, "hello")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, turn.Outcome)
	assert.Equal(t, "hello", turn.PromptText)
	assert.Equal(t, "hi there", turn.ReplyText)
	assert.Equal(t, "llama3.2:3b", responder.gotModel)
	assert.Equal(t, []string{"hi there"}, speaker.spoken)
	assert.Contains(t, out.String(), "Thinking...")
	assert.Contains(t, out.String(), "hi there")
	assert.Contains(t, out.String(), "Speaking...")
}

func TestRunTurn_TextEmptyInputSkipsEngines(t *testing.T) {
	responder := &stubResponder{reply: "should not be asked"}
	speaker := &stubSpeaker{}
	exec := NewExecutor(ExecutorOptions{
		Responder: responder,
		Speaker:   speaker,
		Logger:    zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Text)
	for _, typed := range []string{"", "   ", "\t"} {
		turn, err := exec.RunTurn(context.Background(), sess, typed)
		require.NoError(t, err)
		assert.Equal(t, OutcomeEmptyInput, turn.Outcome)
	}

	assert.Zero(t, responder.calls)
	assert.Empty(t, speaker.spoken)
}

func TestRunTurn_VoiceNoSpeechSkipsTranscriber(t *testing.T) {
	capturer := &stubCapturer{err: audio.ErrNoSpeech}
	transcriber := &stubTranscriber{text: "never used"}
	responder := &stubResponder{}
	exec := NewExecutor(ExecutorOptions{
		Capturer:    capturer,
		Transcriber: transcriber,
		Responder:   responder,
		Logger:      zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Voice)
	turn, err := exec.RunTurn(context.Background(), sess, "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeEmptyInput, turn.Outcome)
	assert.Equal(t, 1, capturer.calls)
	assert.Zero(t, transcriber.calls)
	assert.Zero(t, responder.calls)
}

func TestRunTurn_VoiceCaptureFailure(t *testing.T) {
	capturer := &stubCapturer{err: errors.New("device wedged")}
	exec := NewExecutor(ExecutorOptions{
		Capturer:    capturer,
		Transcriber: &stubTranscriber{},
		Responder:   &stubResponder{},
		Logger:      zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Voice)
	turn, err := exec.RunTurn(context.Background(), sess, "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeEngineError, turn.Outcome)
	assert.Contains(t, turn.Err, "audio capture failed")
}

func TestRunTurn_VoiceEmptyTranscriptSkipsResponder(t *testing.T) {
	responder := &stubResponder{}
	exec := NewExecutor(ExecutorOptions{
		Capturer:    &stubCapturer{capture: testCapture()},
		Transcriber: &stubTranscriber{text: "   "},
		Responder:   responder,
		Logger:      zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Voice)
	turn, err := exec.RunTurn(context.Background(), sess, "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeTranscriptionFailed, turn.Outcome)
	assert.Zero(t, responder.calls)
}

func TestRunTurn_VoiceTranscriberError(t *testing.T) {
	exec := NewExecutor(ExecutorOptions{
		Capturer:    &stubCapturer{capture: testCapture()},
		Transcriber: &stubTranscriber{err: errors.New("whisper server unreachable")},
		Responder:   &stubResponder{},
		Logger:      zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Voice)
	turn, err := exec.RunTurn(context.Background(), sess, "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeTranscriptionFailed, turn.Outcome)
	assert.Contains(t, turn.Err, "whisper server unreachable")
}

func TestRunTurn_VoiceCompleted(t *testing.T) {
	out := &bytes.Buffer{}
	responder := &stubResponder{reply: "lights are on"}
	exec := NewExecutor(ExecutorOptions{
		Capturer:    &stubCapturer{capture: testCapture()},
		Transcriber: &stubTranscriber{text: "turn on the lights"},
		Responder:   responder,
		Speaker:     &stubSpeaker{},
		Out:         out,
		Logger:      zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Voice)
	turn, err := exec.RunTurn(context.Background(), sess, "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, turn.Outcome)
	assert.Equal(t, "turn on the lights", responder.gotPrompt)
	assert.Contains(t, out.String(), "Listening for")
	assert.Contains(t, out.String(), "You said: turn on the lights")
	assert.Contains(t, out.String(), "lights are on")
}

func TestRunTurn_ResponderFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"model unavailable", fmt.Errorf("%w: model 'ghost' not found", llm.ErrModelUnavailable)},
		{"engine unreachable", fmt.Errorf("%w: connection refused", llm.ErrEngineUnavailable)},
		{"empty reply", llm.ErrEmptyReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speaker := &stubSpeaker{}
			exec := NewExecutor(ExecutorOptions{
				Responder: &stubResponder{err: tt.err},
				Speaker:   speaker,
				Logger:    zerolog.Nop(),
			})

			sess := newTestSession("llama3.2:3b", mode.Text)
			turn, err := exec.RunTurn(context.Background(), sess, "hello")
			require.NoError(t, err)

			assert.Equal(t, OutcomeEngineError, turn.Outcome)
			assert.NotEmpty(t, turn.Err)
			assert.Equal(t, "llama3.2:3b", sess.SelectedModel)
			assert.Empty(t, speaker.spoken)
		})
	}
}

func TestRunTurn_SpeakerFailureKeepsCompleted(t *testing.T) {
	out := &bytes.Buffer{}
	exec := NewExecutor(ExecutorOptions{
		Responder: &stubResponder{reply: "the answer is 42"},
		Speaker:   &stubSpeaker{err: errors.New("no audio device")},
		Out:       out,
		Logger:    zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Text)
	turn, err := exec.RunTurn(context.Background(), sess, "what is the answer")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, turn.Outcome)
	assert.Contains(t, out.String(), "the answer is 42")
	assert.Contains(t, out.String(), "playback failed")
}

func TestRunTurn_NoSpeakerConfigured(t *testing.T) {
	exec := NewExecutor(ExecutorOptions{
		Responder: &stubResponder{reply: "quiet reply"},
		Logger:    zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Text)
	turn, err := exec.RunTurn(context.Background(), sess, "hello")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, turn.Outcome)
}

func TestRunTurn_VoiceWithoutEnginesIsEngineError(t *testing.T) {
	exec := NewExecutor(ExecutorOptions{
		Responder: &stubResponder{},
		Logger:    zerolog.Nop(),
	})

	sess := newTestSession("llama3.2:3b", mode.Voice)
	turn, err := exec.RunTurn(context.Background(), sess, "")
	require.NoError(t, err)

	assert.Equal(t, OutcomeEngineError, turn.Outcome)
	assert.Contains(t, turn.Err, "voice input is not available")
}

func TestRunTurn_NoModelSelected(t *testing.T) {
	exec := NewExecutor(ExecutorOptions{
		Responder: &stubResponder{},
		Logger:    zerolog.Nop(),
	})

	sess := newTestSession("", mode.Text)
	_, err := exec.RunTurn(context.Background(), sess, "hello")
	require.ErrorIs(t, err, ErrNoModelSelected)
}

type blockingResponder struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingResponder) Chat(ctx context.Context, model, prompt string) (string, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return "done", nil
}

func TestRunTurn_RejectsConcurrentTurn(t *testing.T) {
	responder := &blockingResponder{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	exec := NewExecutor(ExecutorOptions{
		Responder: responder,
		Logger:    zerolog.Nop(),
	})
	sess := newTestSession("llama3.2:3b", mode.Text)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = exec.RunTurn(context.Background(), sess, "slow question")
	}()

	<-responder.entered
	_, err := exec.RunTurn(context.Background(), sess, "impatient question")
	require.ErrorIs(t, err, ErrTurnInFlight)

	close(responder.release)
	<-done
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "empty_input", OutcomeEmptyInput.String())
	assert.Equal(t, "transcription_failed", OutcomeTranscriptionFailed.String())
	assert.Equal(t, "engine_error", OutcomeEngineError.String())
}

type stubSTTProvider struct {
	resp *stt.TranscribeResponse
	req  *stt.TranscribeRequest
}

func (s *stubSTTProvider) Name() string { return "stub" }

func (s *stubSTTProvider) Transcribe(ctx context.Context, req *stt.TranscribeRequest) (*stt.TranscribeResponse, error) {
	s.req = req
	return s.resp, nil
}

func (s *stubSTTProvider) Health(ctx context.Context) error { return nil }

func (s *stubSTTProvider) Capabilities() stt.ProviderCapabilities {
	return stt.ProviderCapabilities{}
}

func TestEngineTranscriber_BuildsRequestFromCapture(t *testing.T) {
	provider := &stubSTTProvider{resp: &stt.TranscribeResponse{Text: "hello world"}}
	tr := NewEngineTranscriber(provider, nil, "en")

	text, err := tr.Transcribe(context.Background(), testCapture())
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	require.NotNil(t, provider.req)
	assert.Equal(t, "wav", provider.req.Format)
	assert.Equal(t, 16000, provider.req.SampleRate)
	assert.Equal(t, 1, provider.req.Channels)
	assert.Equal(t, "en", provider.req.Language)
}

func TestEngineTranscriber_FiltersHallucinations(t *testing.T) {
	provider := &stubSTTProvider{resp: &stt.TranscribeResponse{Text: "Thanks for watching!"}}
	tr := NewEngineTranscriber(provider, stt.NewTranscriptFilter(nil), "en")

	text, err := tr.Transcribe(context.Background(), testCapture())
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestEngineResponder_PassesModelAndPrompt(t *testing.T) {
	inner := &stubLLMProvider{reply: "42"}
	r := NewEngineResponder(inner)

	reply, err := r.Chat(context.Background(), "llama3.2:3b", "the question")
	require.NoError(t, err)
	assert.Equal(t, "42", reply)
	assert.Equal(t, "llama3.2:3b", inner.req.Model)
	assert.Equal(t, "the question", inner.req.Prompt)
}

type stubLLMProvider struct {
	reply string
	req   *llm.ChatRequest
}

func (s *stubLLMProvider) Name() string { return "stub" }

func (s *stubLLMProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.req = req
	return &llm.ChatResponse{Text: s.reply}, nil
}

func (s *stubLLMProvider) Health(ctx context.Context) error { return nil }
