package models

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	provider := NewStaticProvider("test", []ModelInfo{
		{ID: "model-1", Name: "Model 1"},
	})
	registry.Register(provider)

	p, ok := registry.Get("test")
	if !ok {
		t.Error("Expected to find provider 'test'")
	}
	if p.Engine() != "test" {
		t.Errorf("Expected engine 'test', got '%s'", p.Engine())
	}

	_, ok = registry.Get("nonexistent")
	if ok {
		t.Error("Expected not to find provider 'nonexistent'")
	}
}

func TestRegistry_ListModels_UnknownEngine(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.ListModels(context.Background(), "unknown")
	if err == nil {
		t.Error("Expected error for unknown engine")
	}
}

func TestOllamaProvider_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Expected path /api/tags, got %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"models": [
				{
					"name": "llama3.2:3b",
					"model": "llama3.2:3b",
					"size": 2019393189,
					"details": {"family": "llama3.2", "parameter_size": "3.2B", "quantization_level": "Q4_K_M"}
				},
				{
					"name": "mistral:latest",
					"model": "mistral:latest",
					"size": 4113301824,
					"details": {"family": "mistral", "parameter_size": "7.2B"}
				}
			]
		}`))
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL)

	models, err := provider.ListModels(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("Expected 2 models, got %d", len(models))
	}

	first := models[0]
	if first.ID != "llama3.2:3b" {
		t.Errorf("Expected ID 'llama3.2:3b', got '%s'", first.ID)
	}
	if first.ParameterSize != "3.2B" {
		t.Errorf("Expected parameter size '3.2B', got '%s'", first.ParameterSize)
	}
	if first.Size != 2019393189 {
		t.Errorf("Expected size 2019393189, got %d", first.Size)
	}
	if first.ContextSize != 128000 {
		t.Errorf("Expected context size 128000 for llama3.2, got %d", first.ContextSize)
	}
	if first.Description == "" {
		t.Error("Expected non-empty description")
	}
}

func TestOllamaProvider_ListModels_EngineDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider := NewOllamaProvider(server.URL)

	_, err := provider.ListModels(context.Background())
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Errorf("Expected ErrRegistryUnavailable, got %v", err)
	}
}

func TestOllamaProvider_ListModels_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL)

	_, err := provider.ListModels(context.Background())
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Errorf("Expected ErrRegistryUnavailable, got %v", err)
	}
}

func TestOllamaProvider_ListModels_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL)

	models, err := provider.ListModels(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("Expected empty list, got %d models", len(models))
	}
}

func TestSelect(t *testing.T) {
	listing := []ModelInfo{
		{ID: "llama3.2:3b", Name: "llama3.2:3b"},
		{ID: "mistral:latest", Name: "mistral:latest"},
	}

	tests := []struct {
		name    string
		choice  string
		wantID  string
		wantErr error
	}{
		{
			name:   "index picks the displayed model",
			choice: "2",
			wantID: "mistral:latest",
		},
		{
			name:   "first index",
			choice: "1",
			wantID: "llama3.2:3b",
		},
		{
			name:   "index with surrounding spaces",
			choice: "  1  ",
			wantID: "llama3.2:3b",
		},
		{
			name:   "exact model id",
			choice: "mistral:latest",
			wantID: "mistral:latest",
		},
		{
			name:   "model id case insensitive",
			choice: "MISTRAL:latest",
			wantID: "mistral:latest",
		},
		{
			name:    "index out of range",
			choice:  "3",
			wantErr: ErrInvalidSelection,
		},
		{
			name:    "zero index",
			choice:  "0",
			wantErr: ErrInvalidSelection,
		},
		{
			name:    "negative index",
			choice:  "-1",
			wantErr: ErrInvalidSelection,
		},
		{
			name:    "unknown model id",
			choice:  "gpt-4o",
			wantErr: ErrInvalidSelection,
		},
		{
			name:    "empty choice",
			choice:  "",
			wantErr: ErrInvalidSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := Select(listing, tt.choice)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Select(%q) error = %v, want %v", tt.choice, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select(%q) unexpected error: %v", tt.choice, err)
			}
			if model.ID != tt.wantID {
				t.Errorf("Select(%q) = %s, want %s", tt.choice, model.ID, tt.wantID)
			}
		})
	}
}

func TestSelect_EmptyListing(t *testing.T) {
	_, err := Select(nil, "1")
	if !errors.Is(err, ErrNoModels) {
		t.Errorf("Expected ErrNoModels, got %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	provider := NewStaticProvider("fallback", []ModelInfo{
		{ID: "llama3.2:3b", Name: "llama3.2:3b", Description: "configured fallback"},
	})

	models, err := provider.ListModels(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("Expected 1 model, got %d", len(models))
	}

	if !provider.ValidateModel("llama3.2:3b") {
		t.Error("Expected llama3.2:3b to validate")
	}
	if provider.ValidateModel("other") {
		t.Error("Expected 'other' to fail validation")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{2019393189, "1.9 GB"},
		{4113301824, "3.8 GB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
