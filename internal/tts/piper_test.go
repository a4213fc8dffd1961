package tts

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestSanitizeForSpeech(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text unchanged",
			input: "The weather is sunny today.",
			want:  "The weather is sunny today.",
		},
		{
			name:  "bold markers removed",
			input: "This is **very** important",
			want:  "This is very important",
		},
		{
			name:  "italic markers removed",
			input: "This is *quite* subtle",
			want:  "This is quite subtle",
		},
		{
			name:  "inline code dropped",
			input: "Run `go test` to check",
			want:  "Run to check",
		},
		{
			name:  "code block dropped",
			input: "Here is an example:\n```go\nfmt.Println(\"hi\")\n```\nDone.",
			want:  "Here is an example: Done.",
		},
		{
			name:  "link text kept",
			input: "See [the docs](https://example.com) for details",
			want:  "See the docs for details",
		},
		{
			name:  "bullets stripped",
			input: "- first\n- second\n- third",
			want:  "first second third",
		},
		{
			name:  "numbered list stripped",
			input: "1. one\n2. two",
			want:  "one two",
		},
		{
			name:  "quotes softened",
			input: `He said "hello"`,
			want:  "He said 'hello'",
		},
		{
			name:  "whitespace collapsed",
			input: "too   many\n\n\nspaces",
			want:  "too many spaces",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeForSpeech(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeForSpeech(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPiperProvider_ModelPath(t *testing.T) {
	provider := NewPiperProvider(zerolog.Nop(), &PiperConfig{
		VoicesDir: "/opt/voices",
		Voice:     "en_US-amy-medium",
	}, nil)

	got := provider.modelPath("en_US-lessac-medium")
	want := filepath.Join("/opt/voices", "en_US-lessac-medium.onnx")
	if got != want {
		t.Errorf("modelPath() = %q, want %q", got, want)
	}
}

func TestDefaultPiperConfig(t *testing.T) {
	cfg := DefaultPiperConfig()

	if cfg.Voice != "en_US-amy-medium" {
		t.Errorf("default voice = %q, want en_US-amy-medium", cfg.Voice)
	}
	if cfg.Speed != 1.0 {
		t.Errorf("default speed = %v, want 1.0", cfg.Speed)
	}
	if cfg.VoicesDir == "" {
		t.Error("default voices dir should not be empty")
	}
}
