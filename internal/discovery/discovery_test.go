package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProberReportsStatusInOrder(t *testing.T) {
	p := NewProber(time.Second, zerolog.Nop())
	p.Add("ollama", func(ctx context.Context) error { return nil })
	p.Add("whisper", func(ctx context.Context) error { return errors.New("connection refused") })
	p.Add("piper", func(ctx context.Context) error { return nil })

	results := p.Run(context.Background())
	require.Len(t, results, 3)

	assert.Equal(t, "ollama", results[0].Name)
	assert.Equal(t, StatusOnline, results[0].Status)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, "whisper", results[1].Name)
	assert.Equal(t, StatusOffline, results[1].Status)
	assert.EqualError(t, results[1].Err, "connection refused")

	assert.Equal(t, "piper", results[2].Name)
	assert.Equal(t, StatusOnline, results[2].Status)
}

func TestProberTimesOutSlowEngines(t *testing.T) {
	p := NewProber(50*time.Millisecond, zerolog.Nop())
	p.Add("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	results := p.Run(context.Background())
	elapsed := time.Since(start)

	require.Len(t, results, 1)
	assert.Equal(t, StatusOffline, results[0].Status)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second, "probe should give up at the timeout")
}

func TestProberRunsChecksConcurrently(t *testing.T) {
	p := NewProber(time.Second, zerolog.Nop())
	slow := func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}
	p.Add("a", slow)
	p.Add("b", slow)
	p.Add("c", slow)

	start := time.Now()
	results := p.Run(context.Background())
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	assert.Less(t, elapsed, 250*time.Millisecond, "checks should not run serially")
}

func TestProberWithNoChecks(t *testing.T) {
	p := NewProber(time.Second, zerolog.Nop())
	assert.Empty(t, p.Run(context.Background()))
	assert.Equal(t, 0, p.Len())
}
