// Package audio provides microphone capture and playback for CortexChat.
// Capture and playback shell out to the system audio tools (arecord, sox,
// ffmpeg, aplay, afplay); this package manages formats, silence detection,
// and exclusive access.
package audio

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrNoRecorder    = errors.New("no audio recorder available")
	ErrNoPlayer      = errors.New("no audio player available")
	ErrNoSpeech      = errors.New("no speech detected")
	ErrInvalidFormat = errors.New("invalid audio format")
	ErrBusy          = errors.New("audio device busy")
)

// AudioFormat represents audio encoding format
type AudioFormat string

const (
	FormatWAV AudioFormat = "wav"
	FormatPCM AudioFormat = "pcm"
)

// AudioState represents the current audio system state
type AudioState string

const (
	StateIdle      AudioState = "idle"
	StateListening AudioState = "listening"
	StateSpeaking  AudioState = "speaking"
)

// AudioConfig holds audio system configuration
type AudioConfig struct {
	InputDevice    string  `json:"input_device"`
	OutputDevice   string  `json:"output_device"`
	SampleRate     int     `json:"sample_rate"`     // Default: 16000 Hz for STT
	Channels       int     `json:"channels"`        // Default: 1 (mono)
	BitDepth       int     `json:"bit_depth"`       // Default: 16
	CaptureSeconds int     `json:"capture_seconds"` // Default: 6
	SilenceRMS     float64 `json:"silence_rms"`     // Default: 0.01
	Recorder       string  `json:"recorder"`        // auto, arecord, sox, ffmpeg
	Player         string  `json:"player"`          // auto, aplay, afplay, ffplay
}

// DefaultAudioConfig returns sensible defaults
func DefaultAudioConfig() *AudioConfig {
	return &AudioConfig{
		InputDevice:    "",
		OutputDevice:   "",
		SampleRate:     16000,
		Channels:       1,
		BitDepth:       16,
		CaptureSeconds: 6,
		SilenceRMS:     0.01,
		Recorder:       "auto",
		Player:         "auto",
	}
}

// Capture is one bounded microphone recording. WAV holds the full RIFF
// container; PCM() strips the header when an engine wants raw samples.
type Capture struct {
	WAV        []byte        `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth"`
	Duration   time.Duration `json:"duration"`
	RMS        float64       `json:"rms"`
	CapturedAt time.Time     `json:"captured_at"`
}

// PCM returns the raw sample data without the WAV container.
func (c *Capture) PCM() ([]byte, error) {
	return ExtractPCM(c.WAV)
}
