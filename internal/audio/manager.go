package audio

import (
	"context"
	"sync"

	"github.com/normanking/cortexchat/internal/bus"
	"github.com/rs/zerolog"
)

// Manager coordinates capture and playback. The conversational loop is
// strictly sequential, so the manager's job is to enforce that invariant
// at the device boundary: one capture or playback in flight, never both.
type Manager struct {
	config   *AudioConfig
	eventBus *bus.EventBus
	logger   zerolog.Logger

	recorder *Recorder
	player   *Player

	state   AudioState
	stateMu sync.RWMutex

	ioMu sync.Mutex
}

// NewManager creates a new audio manager
func NewManager(config *AudioConfig, eventBus *bus.EventBus, logger zerolog.Logger) *Manager {
	if config == nil {
		config = DefaultAudioConfig()
	}

	return &Manager{
		config:   config,
		eventBus: eventBus,
		logger:   logger.With().Str("component", "audio").Logger(),
		recorder: NewRecorder(config, logger),
		player:   NewPlayer(config, logger),
		state:    StateIdle,
	}
}

// GetState returns the current audio state
func (m *Manager) GetState() AudioState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// setState updates the audio state and emits an event
func (m *Manager) setState(state AudioState) {
	m.stateMu.Lock()
	oldState := m.state
	m.state = state
	m.stateMu.Unlock()

	if oldState != state {
		m.logger.Debug().Str("old", string(oldState)).Str("new", string(state)).Msg("Audio state changed")
		if m.eventBus != nil {
			m.eventBus.Publish(bus.Event{
				Type: bus.EventTypeAudioStateChanged,
				Data: map[string]any{
					"old_state": string(oldState),
					"new_state": string(state),
				},
			})
		}
	}
}

// CaptureAvailable checks if a recording tool is installed
func (m *Manager) CaptureAvailable() bool {
	return m.recorder.IsAvailable()
}

// PlaybackAvailable checks if a playback tool is installed
func (m *Manager) PlaybackAvailable() bool {
	return m.player.IsAvailable()
}

// Capture records up to seconds of audio. Returns ErrNoSpeech on silence
// and ErrBusy if another capture or playback holds the device.
func (m *Manager) Capture(ctx context.Context, seconds int) (*Capture, error) {
	if !m.ioMu.TryLock() {
		return nil, ErrBusy
	}
	defer m.ioMu.Unlock()

	m.setState(StateListening)
	defer m.setState(StateIdle)

	if m.eventBus != nil {
		m.eventBus.Publish(bus.Event{Type: bus.EventTypeCaptureStarted, Data: map[string]any{
			"seconds": seconds,
		}})
	}

	capture, err := m.recorder.Record(ctx, seconds)

	if m.eventBus != nil {
		data := map[string]any{"ok": err == nil}
		if capture != nil {
			data["duration"] = capture.Duration.Seconds()
			data["rms"] = capture.RMS
		}
		m.eventBus.Publish(bus.Event{Type: bus.EventTypeCaptureFinished, Data: data})
	}

	return capture, err
}

// Play blocks until the WAV buffer has finished playing. Returns ErrBusy
// if another capture or playback holds the device.
func (m *Manager) Play(ctx context.Context, wav []byte) error {
	if !m.ioMu.TryLock() {
		return ErrBusy
	}
	defer m.ioMu.Unlock()

	m.setState(StateSpeaking)
	defer m.setState(StateIdle)

	if m.eventBus != nil {
		m.eventBus.Publish(bus.Event{Type: bus.EventTypePlaybackStarted, Data: map[string]any{
			"bytes": len(wav),
		}})
	}

	err := m.player.Play(ctx, wav)

	if m.eventBus != nil {
		m.eventBus.Publish(bus.Event{Type: bus.EventTypePlaybackFinished, Data: map[string]any{
			"ok": err == nil,
		}})
	}

	return err
}
