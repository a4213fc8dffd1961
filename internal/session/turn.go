package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/normanking/cortexchat/internal/mode"
)

// Outcome classifies how a turn ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeEmptyInput
	OutcomeTranscriptionFailed
	OutcomeEngineError
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeEmptyInput:
		return "empty_input"
	case OutcomeTranscriptionFailed:
		return "transcription_failed"
	case OutcomeEngineError:
		return "engine_error"
	default:
		return "unknown"
	}
}

// Turn is one input→reply→speech exchange. It lives for a single loop
// iteration and is never shared across turns.
type Turn struct {
	ID         string
	Mode       mode.Mode
	Model      string
	RawInput   string
	PromptText string
	ReplyText  string
	Outcome    Outcome
	Err        string // human-readable failure detail, set on non-completed outcomes
	StartedAt  time.Time
	Duration   time.Duration
}

func newTurn(m mode.Mode, model string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Mode:      m,
		Model:     model,
		StartedAt: time.Now(),
	}
}
