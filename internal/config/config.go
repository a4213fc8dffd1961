// Package config provides configuration management for CortexChat
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Audio   AudioConfig   `mapstructure:"audio"`
	STT     STTConfig     `mapstructure:"stt"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LLMConfig configures the language model endpoint and registry
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // ollama, openai
	Endpoint     string        `mapstructure:"endpoint"`
	DefaultModel string        `mapstructure:"default_model"` // fallback when the registry lists nothing
	APIKey       string        `mapstructure:"api_key"`       // openai-compat servers only
	SystemPrompt string        `mapstructure:"system_prompt"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// AudioConfig configures microphone capture and playback
type AudioConfig struct {
	InputDevice    string  `mapstructure:"input_device"`
	OutputDevice   string  `mapstructure:"output_device"`
	SampleRate     int     `mapstructure:"sample_rate"`
	Channels       int     `mapstructure:"channels"`
	BitDepth       int     `mapstructure:"bit_depth"`
	CaptureSeconds int     `mapstructure:"capture_seconds"`
	SilenceRMS     float64 `mapstructure:"silence_rms"` // below this the capture counts as silence
	Recorder       string  `mapstructure:"recorder"`    // auto, arecord, sox, ffmpeg
	Player         string  `mapstructure:"player"`      // auto, aplay, afplay, ffplay
}

// STTConfig configures speech-to-text
type STTConfig struct {
	Provider   string `mapstructure:"provider"` // whisper-server, whisper-cpp, vosk
	Endpoint   string `mapstructure:"endpoint"`
	BinPath    string `mapstructure:"bin_path"`
	ModelPath  string `mapstructure:"model_path"`
	ModelSize  string `mapstructure:"model_size"`
	Language   string `mapstructure:"language"`
	NumThreads int    `mapstructure:"num_threads"`
}

// TTSConfig configures text-to-speech
type TTSConfig struct {
	Provider string  `mapstructure:"provider"` // piper, piper-server, say
	Endpoint string  `mapstructure:"endpoint"`
	BinPath  string  `mapstructure:"bin_path"`
	Voice    string  `mapstructure:"voice"`
	Speed    float64 `mapstructure:"speed"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:     "ollama",
			Endpoint:     "http://localhost:11434",
			DefaultModel: "",
			APIKey:       "",
			SystemPrompt: "",
			Timeout:      120 * time.Second,
		},
		Audio: AudioConfig{
			InputDevice:    "",
			OutputDevice:   "",
			SampleRate:     16000,
			Channels:       1,
			BitDepth:       16,
			CaptureSeconds: 6,
			SilenceRMS:     0.01,
			Recorder:       "auto",
			Player:         "auto",
		},
		STT: STTConfig{
			Provider:   "whisper-server",
			Endpoint:   "http://localhost:8080",
			BinPath:    "",
			ModelPath:  "",
			ModelSize:  "base",
			Language:   "en",
			NumThreads: 4,
		},
		TTS: TTSConfig{
			Provider: "piper",
			Endpoint: "http://localhost:5000",
			BinPath:  "",
			Voice:    "",
			Speed:    1.0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Dir:     "",
			Console: true,
		},
	}
}

// Load reads configuration from file and environment
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		configDir, err := GetConfigDir()
		if err != nil {
			return cfg, err
		}
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return cfg, err
		}
		v.SetConfigName("config")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	// Environment variable overrides
	v.SetEnvPrefix("CORTEXCHAT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// No config file yet, run on defaults
		return cfg, nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	v := viper.New()
	v.Set("llm", cfg.LLM)
	v.Set("audio", cfg.Audio)
	v.Set("stt", cfg.STT)
	v.Set("tts", cfg.TTS)
	v.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return v.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cortexchat"), nil
}
