package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Registry manages model providers and resolves user selections
type Registry struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewRegistry creates a new registry instance
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Engine()] = p
}

// Get retrieves a provider by engine name
func (r *Registry) Get(engine string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[engine]
	return p, ok
}

// ListModels returns models for a specific engine
func (r *Registry) ListModels(ctx context.Context, engine string) ([]ModelInfo, error) {
	r.mu.RLock()
	p, ok := r.providers[engine]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown engine: %s", engine)
	}

	return p.ListModels(ctx)
}

// ValidateModel checks if a model is valid for a given engine
func (r *Registry) ValidateModel(engine, model string) bool {
	r.mu.RLock()
	p, ok := r.providers[engine]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	return p.ValidateModel(model)
}

// Engines returns a list of registered engine names
func (r *Registry) Engines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]string, 0, len(r.providers))
	for engine := range r.providers {
		engines = append(engines, engine)
	}
	return engines
}

// Select resolves a user's choice against a model listing. The choice is
// either a 1-based index into the listing or a model ID.
func Select(models []ModelInfo, choice string) (ModelInfo, error) {
	if len(models) == 0 {
		return ModelInfo{}, ErrNoModels
	}

	choice = strings.TrimSpace(choice)
	if choice == "" {
		return ModelInfo{}, fmt.Errorf("%w: empty choice", ErrInvalidSelection)
	}

	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(models) {
			return ModelInfo{}, fmt.Errorf("%w: %d is out of range 1-%d", ErrInvalidSelection, n, len(models))
		}
		return models[n-1], nil
	}

	for _, m := range models {
		if m.ID == choice {
			return m, nil
		}
	}
	for _, m := range models {
		if strings.EqualFold(m.ID, choice) {
			return m, nil
		}
	}

	return ModelInfo{}, fmt.Errorf("%w: %q matches no installed model", ErrInvalidSelection, choice)
}
