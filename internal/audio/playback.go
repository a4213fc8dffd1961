package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// playerTools in preference order for auto-detection.
var playerTools = []string{"aplay", "afplay", "ffplay", "play"}

// Player plays WAV audio through a system playback tool.
type Player struct {
	config *AudioConfig
	logger zerolog.Logger
}

// NewPlayer creates a player for the configured (or auto-detected) tool.
func NewPlayer(config *AudioConfig, logger zerolog.Logger) *Player {
	if config == nil {
		config = DefaultAudioConfig()
	}
	return &Player{
		config: config,
		logger: logger.With().Str("component", "player").Logger(),
	}
}

// Tool resolves the playback tool binary, honoring the configured override.
func (p *Player) Tool() (string, error) {
	if p.config.Player != "" && p.config.Player != "auto" {
		if _, err := exec.LookPath(p.config.Player); err != nil {
			return "", fmt.Errorf("%w: %s not in PATH", ErrNoPlayer, p.config.Player)
		}
		return p.config.Player, nil
	}
	for _, tool := range playerTools {
		if _, err := exec.LookPath(tool); err == nil {
			return tool, nil
		}
	}
	return "", ErrNoPlayer
}

// IsAvailable checks if any playback tool is installed
func (p *Player) IsAvailable() bool {
	_, err := p.Tool()
	return err == nil
}

// Play blocks until the WAV buffer has finished playing.
func (p *Player) Play(ctx context.Context, wav []byte) error {
	if len(wav) == 0 {
		return fmt.Errorf("%w: empty buffer", ErrInvalidFormat)
	}

	tool, err := p.Tool()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "cortexchat_play_*.wav")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	args := p.buildArgs(tool, tmp.Name())

	cmd := exec.CommandContext(ctx, tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Debug().Str("tool", tool).Int("bytes", len(wav)).Msg("Playback started")
	start := time.Now()

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w (stderr: %s)", tool, err, stderr.String())
	}

	p.logger.Debug().Dur("took", time.Since(start)).Msg("Playback finished")
	return nil
}

// buildArgs assembles the per-tool playback command line.
func (p *Player) buildArgs(tool, path string) []string {
	switch tool {
	case "aplay":
		args := []string{"-q"}
		if p.config.OutputDevice != "" {
			args = append(args, "-D", p.config.OutputDevice)
		}
		return append(args, path)
	case "ffplay":
		return []string{"-autoexit", "-nodisp", "-loglevel", "error", path}
	case "play":
		return []string{"-q", path}
	default: // afplay
		return []string{path}
	}
}
