package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexchat/internal/audio"
	"github.com/normanking/cortexchat/internal/bus"
	"github.com/normanking/cortexchat/internal/mode"
)

var (
	// ErrTurnInFlight means a second turn was started while one was still
	// running. The loop is strictly sequential, so this is a caller bug.
	ErrTurnInFlight = errors.New("another turn is already in flight")

	// ErrNoModelSelected means RunTurn was called before model selection.
	ErrNoModelSelected = errors.New("no model selected")
)

// Capturer records a bounded stretch of microphone audio.
// audio.Manager satisfies this.
type Capturer interface {
	Capture(ctx context.Context, seconds int) (*audio.Capture, error)
}

// Transcriber converts a capture to text. An empty string with a nil error
// means the engine heard nothing usable.
type Transcriber interface {
	Transcribe(ctx context.Context, cap *audio.Capture) (string, error)
}

// Responder produces a reply for a prompt against a specific model.
type Responder interface {
	Chat(ctx context.Context, model, prompt string) (string, error)
}

// Speaker voices a reply out loud, blocking until playback finishes.
// tts providers satisfy this.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Executor runs single conversational turns. Each engine call sits behind
// its own failure boundary: a bad capture, a flaky chat call, or a broken
// speaker degrades that one turn instead of ending the session.
type Executor struct {
	capturer       Capturer
	transcriber    Transcriber
	responder      Responder
	speaker        Speaker
	eventBus       *bus.EventBus
	out            io.Writer
	logger         zerolog.Logger
	captureSeconds int

	turnMu sync.Mutex
}

// ExecutorOptions wires the engine boundaries into an Executor. Capturer,
// Transcriber, and Speaker may be nil when the matching engine is absent;
// Responder is required.
type ExecutorOptions struct {
	Capturer       Capturer
	Transcriber    Transcriber
	Responder      Responder
	Speaker        Speaker
	EventBus       *bus.EventBus
	Out            io.Writer
	Logger         zerolog.Logger
	CaptureSeconds int
}

func NewExecutor(opts ExecutorOptions) *Executor {
	if opts.CaptureSeconds <= 0 {
		opts.CaptureSeconds = 5
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Executor{
		capturer:       opts.Capturer,
		transcriber:    opts.Transcriber,
		responder:      opts.Responder,
		speaker:        opts.Speaker,
		eventBus:       opts.EventBus,
		out:            opts.Out,
		logger:         opts.Logger.With().Str("component", "turn").Logger(),
		captureSeconds: opts.CaptureSeconds,
	}
}

// RunTurn executes one exchange and reports how it went through the Turn's
// Outcome. The returned error is reserved for defects (no model selected,
// concurrent invocation); every engine failure is folded into the Turn.
//
// In text mode typed is the user's line. In voice mode the line is only the
// trigger to start listening and its content is ignored.
func (e *Executor) RunTurn(ctx context.Context, sess *Session, typed string) (*Turn, error) {
	if !e.turnMu.TryLock() {
		return nil, ErrTurnInFlight
	}
	defer e.turnMu.Unlock()

	if sess == nil || sess.SelectedModel == "" {
		return nil, ErrNoModelSelected
	}
	if e.responder == nil {
		return nil, errors.New("no responder configured")
	}

	turn := newTurn(sess.CurrentMode(), sess.SelectedModel)
	defer func() {
		turn.Duration = time.Since(turn.StartedAt)
		e.publish(bus.EventTypeTurnCompleted, map[string]any{
			"turn_id":     turn.ID,
			"outcome":     turn.Outcome.String(),
			"duration_ms": turn.Duration.Milliseconds(),
		})
	}()
	e.publish(bus.EventTypeTurnStarted, map[string]any{
		"turn_id": turn.ID,
		"mode":    turn.Mode.String(),
	})

	prompt, done := e.acquireInput(ctx, turn, typed)
	if done {
		return turn, nil
	}
	turn.PromptText = prompt

	fmt.Fprintln(e.out, "Thinking...")
	reply, err := e.responder.Chat(ctx, sess.SelectedModel, prompt)
	if err != nil {
		turn.Outcome = OutcomeEngineError
		turn.Err = err.Error()
		e.logger.Warn().Err(err).Str("model", sess.SelectedModel).Msg("Chat request failed")
		return turn, nil
	}
	turn.ReplyText = reply
	e.publish(bus.EventTypeReply, map[string]any{
		"turn_id": turn.ID,
		"model":   sess.SelectedModel,
	})

	// Reply text is shown before playback is attempted so a synthesis
	// failure can never suppress an already obtained answer.
	fmt.Fprintf(e.out, "\n%s\n\n", reply)

	turn.Outcome = OutcomeCompleted
	e.speak(ctx, turn)
	return turn, nil
}

// acquireInput resolves the turn's prompt text from the current mode. When
// it returns done=true the turn already carries its final outcome and no
// engine beyond the input boundary was contacted.
func (e *Executor) acquireInput(ctx context.Context, turn *Turn, typed string) (string, bool) {
	switch turn.Mode {
	case mode.Voice:
		return e.acquireVoice(ctx, turn)
	default:
		turn.RawInput = typed
		prompt := strings.TrimSpace(typed)
		if prompt == "" {
			turn.Outcome = OutcomeEmptyInput
			return "", true
		}
		return prompt, false
	}
}

func (e *Executor) acquireVoice(ctx context.Context, turn *Turn) (string, bool) {
	if e.capturer == nil || e.transcriber == nil {
		turn.Outcome = OutcomeEngineError
		turn.Err = "voice input is not available"
		return "", true
	}

	fmt.Fprintf(e.out, "Listening for %ds...\n", e.captureSeconds)
	capture, err := e.capturer.Capture(ctx, e.captureSeconds)
	if err != nil {
		if errors.Is(err, audio.ErrNoSpeech) {
			turn.Outcome = OutcomeEmptyInput
			return "", true
		}
		turn.Outcome = OutcomeEngineError
		turn.Err = fmt.Sprintf("audio capture failed: %v", err)
		e.logger.Warn().Err(err).Msg("Capture failed")
		return "", true
	}
	if capture == nil {
		turn.Outcome = OutcomeEmptyInput
		return "", true
	}

	text, err := e.transcriber.Transcribe(ctx, capture)
	if err != nil {
		turn.Outcome = OutcomeTranscriptionFailed
		turn.Err = err.Error()
		e.logger.Warn().Err(err).Msg("Transcription failed")
		return "", true
	}

	text = strings.TrimSpace(text)
	turn.RawInput = text
	if text == "" {
		turn.Outcome = OutcomeTranscriptionFailed
		return "", true
	}

	e.publish(bus.EventTypeTranscript, map[string]any{
		"turn_id": turn.ID,
		"text":    text,
	})
	fmt.Fprintf(e.out, "You said: %s\n", text)
	return text, false
}

// speak voices the reply. Playback is best-effort: a failure is reported
// but the turn's COMPLETED outcome stands.
func (e *Executor) speak(ctx context.Context, turn *Turn) {
	if e.speaker == nil || turn.ReplyText == "" {
		return
	}

	fmt.Fprintln(e.out, "Speaking...")
	if err := e.speaker.Speak(ctx, turn.ReplyText); err != nil {
		e.logger.Warn().Err(err).Msg("Speech playback failed")
		fmt.Fprintln(e.out, "(speech playback failed; reply shown above)")
		return
	}
	e.publish(bus.EventTypeSpeechDone, map[string]any{"turn_id": turn.ID})
}

func (e *Executor) publish(t bus.EventType, data map[string]any) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(bus.Event{Type: t, Data: data})
}
