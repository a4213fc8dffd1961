package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// whisperBinaries in preference order when no path is configured.
var whisperBinaries = []string{"whisper-cli", "whisper-cpp", "whisper"}

// WhisperCppProvider transcribes by running the whisper.cpp CLI.
type WhisperCppProvider struct {
	config *WhisperCppConfig
	logger zerolog.Logger
}

// WhisperCppConfig holds configuration for the whisper.cpp exec provider
type WhisperCppConfig struct {
	BinPath    string `json:"bin_path"`   // whisper.cpp binary; auto-detected if empty
	ModelPath  string `json:"model_path"` // directory holding ggml-<size>.bin files
	ModelSize  string `json:"model_size"`
	Language   string `json:"language"`
	NumThreads int    `json:"num_threads"`
	TempDir    string `json:"temp_dir"`
}

// DefaultWhisperCppConfig returns sensible defaults
func DefaultWhisperCppConfig() *WhisperCppConfig {
	return &WhisperCppConfig{
		ModelSize:  "base",
		Language:   "en",
		NumThreads: 4,
		TempDir:    os.TempDir(),
	}
}

// NewWhisperCppProvider creates a new whisper.cpp exec STT provider
func NewWhisperCppProvider(config *WhisperCppConfig, logger zerolog.Logger) *WhisperCppProvider {
	if config == nil {
		config = DefaultWhisperCppConfig()
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.NumThreads == 0 {
		config.NumThreads = 4
	}
	if config.ModelSize == "" {
		config.ModelSize = "base"
	}

	return &WhisperCppProvider{
		config: config,
		logger: logger.With().Str("provider", "whisper-cpp").Logger(),
	}
}

// Name returns the provider identifier
func (p *WhisperCppProvider) Name() string {
	return "whisper-cpp"
}

// binary resolves the whisper.cpp executable.
func (p *WhisperCppProvider) binary() (string, error) {
	if p.config.BinPath != "" {
		if _, err := exec.LookPath(p.config.BinPath); err != nil {
			return "", fmt.Errorf("%w: %s not found", ErrProviderUnavailable, p.config.BinPath)
		}
		return p.config.BinPath, nil
	}
	for _, bin := range whisperBinaries {
		if _, err := exec.LookPath(bin); err == nil {
			return bin, nil
		}
	}
	return "", fmt.Errorf("%w: whisper.cpp binary not in PATH", ErrProviderUnavailable)
}

// modelFile returns the full path to the ggml model for the given size.
func (p *WhisperCppProvider) modelFile(modelSize string) string {
	dir := p.config.ModelPath
	if dir == "" {
		homeDir, _ := os.UserHomeDir()
		dir = filepath.Join(homeDir, ".whisper")
	}
	return filepath.Join(dir, fmt.Sprintf("ggml-%s.bin", modelSize))
}

// Transcribe runs whisper.cpp over a temp WAV file and parses its JSON output.
func (p *WhisperCppProvider) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error) {
	if len(req.Audio) == 0 {
		return nil, ErrAudioTooShort
	}

	bin, err := p.binary()
	if err != nil {
		return nil, err
	}

	modelSize := req.ModelSize
	if modelSize == "" {
		modelSize = p.config.ModelSize
	}
	model := p.modelFile(modelSize)
	if _, err := os.Stat(model); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: model file missing: %s", ErrProviderUnavailable, model)
	}

	language := req.Language
	if language == "" {
		language = p.config.Language
	}

	startTime := time.Now()

	audioPath := filepath.Join(p.config.TempDir, fmt.Sprintf("cortexchat_stt_%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(audioPath, req.Audio, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp audio file: %w", err)
	}
	jsonPath := audioPath + ".json"
	defer os.Remove(audioPath)
	defer os.Remove(jsonPath)

	args := []string{
		"-f", audioPath,
		"-m", model,
		"-t", strconv.Itoa(p.config.NumThreads),
		"-oj",
	}
	if language != "" {
		args = append(args, "-l", language)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug().Str("bin", bin).Str("model", model).Msg("Running whisper.cpp")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("whisper.cpp failed: %w (stderr: %s)", err, stderr.String())
	}

	resp := p.parseOutput(jsonPath, stdout.String(), language)
	resp.ProcessingTime = time.Since(startTime)

	p.logger.Debug().
		Str("text", resp.Text).
		Dur("processing_time", resp.ProcessingTime).
		Msg("Transcription complete")

	return resp, nil
}

// parseOutput reads the -oj JSON file, falling back to stdout text when the
// file is absent or malformed.
func (p *WhisperCppProvider) parseOutput(jsonPath, stdout, language string) *TranscribeResponse {
	var whisperOutput struct {
		Result struct {
			Language string `json:"language"`
		} `json:"result"`
		Transcription []struct {
			Offsets struct {
				From int64 `json:"from"`
				To   int64 `json:"to"`
			} `json:"offsets"`
			Text string `json:"text"`
		} `json:"transcription"`
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil || json.Unmarshal(data, &whisperOutput) != nil {
		return &TranscribeResponse{
			Text:     strings.TrimSpace(stdout),
			Language: language,
			IsFinal:  true,
		}
	}

	var fullText strings.Builder
	var segments []TranscribeSegment
	for i, seg := range whisperOutput.Transcription {
		fullText.WriteString(seg.Text)
		segments = append(segments, TranscribeSegment{
			ID:    i,
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	detected := whisperOutput.Result.Language
	if detected == "" {
		detected = language
	}

	return &TranscribeResponse{
		Text:     strings.TrimSpace(fullText.String()),
		Language: detected,
		Segments: segments,
		IsFinal:  true,
	}
}

// Health checks that the binary and model file are present
func (p *WhisperCppProvider) Health(ctx context.Context) error {
	if _, err := p.binary(); err != nil {
		return err
	}
	model := p.modelFile(p.config.ModelSize)
	if _, err := os.Stat(model); os.IsNotExist(err) {
		return fmt.Errorf("%w: model file missing: %s", ErrProviderUnavailable, model)
	}
	return nil
}

// Capabilities returns the provider's feature set
func (p *WhisperCppProvider) Capabilities() ProviderCapabilities {
	return ProviderCapabilities{
		SupportsStreaming:  false,
		SupportsTimestamps: true,
		SupportedLanguages: []string{"en", "fr", "es", "de", "zh", "ja", "ko", "auto"},
		AvgLatencyMs:       2000,
		RequiresGPU:        false,
		IsLocal:            true,
	}
}
