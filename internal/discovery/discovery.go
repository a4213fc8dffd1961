// Package discovery probes the local engines the assistant depends on.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status reports the outcome of a single engine probe.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// ProbeFunc checks one engine. A nil error means the engine answered.
type ProbeFunc func(ctx context.Context) error

type check struct {
	name  string
	probe ProbeFunc
}

// Result is the outcome of probing one engine.
type Result struct {
	Name    string
	Status  Status
	Latency time.Duration
	Err     error
}

// Prober runs a set of engine checks concurrently with a shared per-check
// timeout. None of the results are fatal; callers decide what an offline
// engine means for them.
type Prober struct {
	timeout time.Duration
	checks  []check
	logger  zerolog.Logger
}

// NewProber creates a prober. timeout bounds each individual check.
func NewProber(timeout time.Duration, logger zerolog.Logger) *Prober {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Prober{
		timeout: timeout,
		logger:  logger.With().Str("component", "discovery").Logger(),
	}
}

// Add registers an engine check. Checks run in registration order in the
// returned results.
func (p *Prober) Add(name string, probe ProbeFunc) {
	p.checks = append(p.checks, check{name: name, probe: probe})
}

// Len returns the number of registered checks.
func (p *Prober) Len() int {
	return len(p.checks)
}

// Run probes every registered engine concurrently and returns the results
// in registration order.
func (p *Prober) Run(ctx context.Context) []Result {
	results := make([]Result, len(p.checks))

	var wg sync.WaitGroup
	for i, c := range p.checks {
		wg.Add(1)
		go func(i int, c check) {
			defer wg.Done()
			results[i] = p.runOne(ctx, c)
		}(i, c)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			p.logger.Warn().Str("engine", r.Name).Err(r.Err).Msg("Engine probe failed")
		} else {
			p.logger.Debug().Str("engine", r.Name).Dur("latency", r.Latency).Msg("Engine online")
		}
	}
	return results
}

func (p *Prober) runOne(ctx context.Context, c check) Result {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := c.probe(probeCtx)
	latency := time.Since(start)

	status := StatusOnline
	if err != nil {
		status = StatusOffline
	}
	return Result{
		Name:    c.name,
		Status:  status,
		Latency: latency,
		Err:     err,
	}
}
