// Package session drives the conversational loop: model selection, mode
// selection and repeated turns against the configured engines.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/normanking/cortexchat/internal/mode"
)

// Session is the top-level mutable context for one interactive run. It is
// created at process start, owned by the orchestrator, and passed into every
// component call; nothing session-scoped lives at package level.
type Session struct {
	ID            string
	SelectedModel string
	Modes         *mode.Controller
	Running       bool
	StartedAt     time.Time
}

// NewSession creates a session with no model selected yet
func NewSession(modes *mode.Controller) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Modes:     modes,
		StartedAt: time.Now(),
	}
}

// CurrentMode returns the active input mode
func (s *Session) CurrentMode() mode.Mode {
	return s.Modes.Current()
}
