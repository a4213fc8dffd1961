package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected default provider 'ollama', got '%s'", cfg.LLM.Provider)
	}
	if cfg.LLM.Endpoint != "http://localhost:11434" {
		t.Errorf("expected ollama endpoint 'http://localhost:11434', got '%s'", cfg.LLM.Endpoint)
	}
	if cfg.LLM.Timeout != 120*time.Second {
		t.Errorf("expected 120s chat timeout, got %v", cfg.LLM.Timeout)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("expected 16 kHz capture, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.CaptureSeconds != 6 {
		t.Errorf("expected 6 second capture window, got %d", cfg.Audio.CaptureSeconds)
	}
	if cfg.STT.Provider != "whisper-server" {
		t.Errorf("expected STT provider 'whisper-server', got '%s'", cfg.STT.Provider)
	}
	if cfg.TTS.Provider != "piper" {
		t.Errorf("expected TTS provider 'piper', got '%s'", cfg.TTS.Provider)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if !cfg.Logging.Console {
		t.Error("expected console logging on by default")
	}
}

func TestLoadReadsYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `llm:
  default_model: mistral:7b
audio:
  capture_seconds: 3
stt:
  provider: vosk
`
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.LLM.DefaultModel != "mistral:7b" {
		t.Errorf("expected default model 'mistral:7b', got '%s'", cfg.LLM.DefaultModel)
	}
	if cfg.Audio.CaptureSeconds != 3 {
		t.Errorf("expected capture window 3, got %d", cfg.Audio.CaptureSeconds)
	}
	if cfg.STT.Provider != "vosk" {
		t.Errorf("expected STT provider 'vosk', got '%s'", cfg.STT.Provider)
	}

	// Sections the file does not mention keep their defaults.
	if cfg.TTS.Provider != "piper" {
		t.Errorf("expected TTS provider 'piper', got '%s'", cfg.TTS.Provider)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("expected 16 kHz capture, got %d", cfg.Audio.SampleRate)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
	if cfg == nil || cfg.LLM.Provider != "ollama" {
		t.Error("defaults should come back even when the file is missing")
	}
}
