package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// recorderTools in preference order for auto-detection.
var recorderTools = []string{"arecord", "sox", "ffmpeg"}

// Recorder captures bounded-duration audio through a system recording tool.
type Recorder struct {
	config *AudioConfig
	logger zerolog.Logger
}

// NewRecorder creates a recorder for the configured (or auto-detected) tool.
func NewRecorder(config *AudioConfig, logger zerolog.Logger) *Recorder {
	if config == nil {
		config = DefaultAudioConfig()
	}
	return &Recorder{
		config: config,
		logger: logger.With().Str("component", "recorder").Logger(),
	}
}

// Tool resolves the recording tool binary, honoring the configured override.
func (r *Recorder) Tool() (string, error) {
	if r.config.Recorder != "" && r.config.Recorder != "auto" {
		if _, err := exec.LookPath(r.config.Recorder); err != nil {
			return "", fmt.Errorf("%w: %s not in PATH", ErrNoRecorder, r.config.Recorder)
		}
		return r.config.Recorder, nil
	}
	for _, tool := range recorderTools {
		if _, err := exec.LookPath(tool); err == nil {
			return tool, nil
		}
	}
	return "", ErrNoRecorder
}

// IsAvailable checks if any recording tool is installed
func (r *Recorder) IsAvailable() bool {
	_, err := r.Tool()
	return err == nil
}

// Record captures up to seconds of audio and returns it as a WAV capture.
// Returns ErrNoSpeech when the recording stays under the silence threshold.
func (r *Recorder) Record(ctx context.Context, seconds int) (*Capture, error) {
	tool, err := r.Tool()
	if err != nil {
		return nil, err
	}
	if seconds <= 0 {
		seconds = r.config.CaptureSeconds
	}

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("cortexchat_rec_%d.wav", time.Now().UnixNano()))
	defer os.Remove(outPath)

	args := r.buildArgs(tool, seconds, outPath)

	// The tool should stop on its own after the duration; the context bound
	// is a backstop for recorders that hang on a missing device.
	ctx, cancel := context.WithTimeout(ctx, time.Duration(seconds+5)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug().Str("tool", tool).Int("seconds", seconds).Msg("Recording started")
	start := time.Now()

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s failed: %w (stderr: %s)", tool, err, stderr.String())
	}

	wav, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("%w: recorder produced no data", ErrNoSpeech)
	}

	info, err := ParseWAV(wav)
	if err != nil {
		return nil, err
	}

	rms := RMS(info.Data, info.BitDepth)
	if rms < r.config.SilenceRMS {
		r.logger.Debug().Float64("rms", rms).Msg("Capture below silence threshold")
		return nil, fmt.Errorf("%w: rms %.4f", ErrNoSpeech, rms)
	}

	capture := &Capture{
		WAV:        wav,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		BitDepth:   info.BitDepth,
		Duration:   PCMDuration(len(info.Data), info.SampleRate, info.Channels, info.BitDepth),
		RMS:        rms,
		CapturedAt: start,
	}

	r.logger.Debug().
		Dur("duration", capture.Duration).
		Float64("rms", rms).
		Int("bytes", len(wav)).
		Msg("Recording finished")

	return capture, nil
}

// buildArgs assembles the per-tool command line for a bounded capture.
func (r *Recorder) buildArgs(tool string, seconds int, outPath string) []string {
	rate := strconv.Itoa(r.config.SampleRate)
	chans := strconv.Itoa(r.config.Channels)
	dur := strconv.Itoa(seconds)

	switch tool {
	case "arecord":
		args := []string{"-q", "-f", "S16_LE", "-r", rate, "-c", chans, "-d", dur}
		if r.config.InputDevice != "" {
			args = append(args, "-D", r.config.InputDevice)
		}
		return append(args, outPath)
	case "sox":
		device := r.config.InputDevice
		if device == "" {
			device = "-d"
		}
		return []string{"-q", device, "-r", rate, "-c", chans, "-b", "16", outPath, "trim", "0", dur}
	case "ffmpeg":
		input := r.config.InputDevice
		var args []string
		if runtime.GOOS == "darwin" {
			if input == "" {
				input = ":0"
			}
			args = []string{"-y", "-loglevel", "error", "-f", "avfoundation", "-i", input}
		} else {
			if input == "" {
				input = "default"
			}
			args = []string{"-y", "-loglevel", "error", "-f", "alsa", "-i", input}
		}
		return append(args, "-t", dur, "-ar", rate, "-ac", chans, "-sample_fmt", "s16", outPath)
	default:
		return []string{outPath}
	}
}
