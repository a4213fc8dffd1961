package models

import "context"

// StaticProvider implements the Provider interface for a fixed model list.
// It backs the configured fallback model when discovery returns nothing.
type StaticProvider struct {
	engine string
	models []ModelInfo
}

// NewStaticProvider creates a new static provider
func NewStaticProvider(engine string, models []ModelInfo) *StaticProvider {
	modelsCopy := make([]ModelInfo, len(models))
	copy(modelsCopy, models)

	return &StaticProvider{
		engine: engine,
		models: modelsCopy,
	}
}

// Engine returns the provider engine name
func (p *StaticProvider) Engine() string {
	return p.engine
}

// ListModels returns the static list of models
func (p *StaticProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	result := make([]ModelInfo, len(p.models))
	copy(result, p.models)
	return result, nil
}

// ValidateModel checks if a model ID exists in the static list
func (p *StaticProvider) ValidateModel(model string) bool {
	for _, m := range p.models {
		if m.ID == model {
			return true
		}
	}
	return false
}
