// Package models discovers and selects language models from local engines.
package models

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrRegistryUnavailable = errors.New("model registry unavailable")
	ErrInvalidSelection    = errors.New("invalid model selection")
	ErrNoModels            = errors.New("no models installed")
)

// ModelInfo represents information about an LLM model
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ParameterSize string `json:"parameter_size,omitempty"`
	Size          int64  `json:"size,omitempty"` // bytes on disk
	ContextSize   int    `json:"context_size,omitempty"`
}

// Provider is the interface for model providers
type Provider interface {
	Engine() string
	ListModels(ctx context.Context) ([]ModelInfo, error)
	ValidateModel(model string) bool
}

// FormatSize renders a byte count the way engine CLIs print model sizes.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
