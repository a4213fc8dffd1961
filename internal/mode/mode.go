// Package mode tracks whether turn input is typed or spoken.
package mode

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexchat/internal/bus"
)

// Mode selects the input source for the next turn.
type Mode int

const (
	Text Mode = iota
	Voice
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case Text:
		return "text"
	case Voice:
		return "voice"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Parse converts a mode name to a Mode
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "t", "1":
		return Text, nil
	case "voice", "v", "2":
		return Voice, nil
	default:
		return Text, fmt.Errorf("unknown mode %q (want text or voice)", s)
	}
}

// Controller holds the current mode. Switching is idempotent: setting the
// active mode again is a no-op and publishes nothing.
type Controller struct {
	mu       sync.RWMutex
	current  Mode
	eventBus *bus.EventBus
	logger   zerolog.Logger
}

// NewController creates a mode controller starting in the given mode
func NewController(initial Mode, eventBus *bus.EventBus, logger zerolog.Logger) *Controller {
	return &Controller{
		current:  initial,
		eventBus: eventBus,
		logger:   logger.With().Str("component", "mode").Logger(),
	}
}

// Current returns the active mode
func (c *Controller) Current() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set switches to the given mode. Returns true if the mode changed.
func (c *Controller) Set(m Mode) bool {
	c.mu.Lock()
	if c.current == m {
		c.mu.Unlock()
		return false
	}
	old := c.current
	c.current = m
	c.mu.Unlock()

	c.logger.Info().
		Str("from", old.String()).
		Str("to", m.String()).
		Msg("Mode changed")

	if c.eventBus != nil {
		c.eventBus.Publish(bus.Event{
			Type: bus.EventTypeModeChanged,
			Data: map[string]any{
				"from": old.String(),
				"to":   m.String(),
			},
		})
	}
	return true
}

// ToText switches to typed input. Returns true if the mode changed.
func (c *Controller) ToText() bool {
	return c.Set(Text)
}

// ToVoice switches to spoken input. Returns true if the mode changed.
func (c *Controller) ToVoice() bool {
	return c.Set(Voice)
}

// Toggle flips between text and voice and returns the new mode
func (c *Controller) Toggle() Mode {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	next := Text
	if current == Text {
		next = Voice
	}
	c.Set(next)
	return next
}
