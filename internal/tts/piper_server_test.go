package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPiperServerProvider(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("with default config", func(t *testing.T) {
		provider := NewPiperServerProvider(nil, nil, logger)

		assert.NotNil(t, provider)
		assert.Equal(t, "http://localhost:5000", provider.config.ServerURL)
		assert.Equal(t, 30, provider.config.Timeout)
	})

	t.Run("with custom config", func(t *testing.T) {
		config := &PiperServerConfig{
			ServerURL: "http://custom:7000",
			Timeout:   10,
		}
		provider := NewPiperServerProvider(config, nil, logger)

		assert.Equal(t, "http://custom:7000", provider.config.ServerURL)
		assert.Equal(t, 10, provider.config.Timeout)
	})
}

func TestPiperServerProvider_Name(t *testing.T) {
	provider := NewPiperServerProvider(nil, nil, zerolog.Nop())

	assert.Equal(t, "piper-server", provider.Name())
}

func TestPiperServerProvider_Synthesize(t *testing.T) {
	fakeWAV := []byte("RIFFfakewavdataWAVE")

	t.Run("successful synthesis", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, "hello there", string(body))

			w.Header().Set("Content-Type", "audio/wav")
			w.Write(fakeWAV)
		}))
		defer server.Close()

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, nil, zerolog.Nop())

		resp, err := provider.Synthesize(context.Background(), &SynthesizeRequest{Text: "hello there"})

		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, fakeWAV, resp.Audio)
		assert.Equal(t, "wav", resp.Format)
		assert.Equal(t, "piper-server", resp.Provider)
		assert.Greater(t, resp.ProcessingTime, time.Duration(0))
	})

	t.Run("markdown stripped before synthesis", func(t *testing.T) {
		var received string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			received = string(body)
			w.Write(fakeWAV)
		}))
		defer server.Close()

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, nil, zerolog.Nop())

		_, err := provider.Synthesize(context.Background(), &SynthesizeRequest{
			Text: "This is **bold** and `code`.",
		})

		require.NoError(t, err)
		assert.Equal(t, "This is bold and .", received)
	})

	t.Run("empty text", func(t *testing.T) {
		provider := NewPiperServerProvider(nil, nil, zerolog.Nop())

		resp, err := provider.Synthesize(context.Background(), &SynthesizeRequest{Text: "```go\ncode only\n```"})

		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Nil(t, resp)
	})

	t.Run("server error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("model load failed"))
		}))
		defer server.Close()

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, nil, zerolog.Nop())

		resp, err := provider.Synthesize(context.Background(), &SynthesizeRequest{Text: "hello"})

		assert.ErrorIs(t, err, ErrSynthesisFailed)
		assert.Nil(t, resp)
	})

	t.Run("server unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, nil, zerolog.Nop())

		resp, err := provider.Synthesize(context.Background(), &SynthesizeRequest{Text: "hello"})

		assert.ErrorIs(t, err, ErrProviderUnavailable)
		assert.Nil(t, resp)
	})

	t.Run("empty audio body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, nil, zerolog.Nop())

		resp, err := provider.Synthesize(context.Background(), &SynthesizeRequest{Text: "hello"})

		assert.ErrorIs(t, err, ErrSynthesisFailed)
		assert.Nil(t, resp)
	})
}

func TestPiperServerProvider_Speak(t *testing.T) {
	fakeWAV := []byte("RIFFfakewavdataWAVE")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fakeWAV)
	}))
	defer server.Close()

	t.Run("routes audio to play func", func(t *testing.T) {
		var played []byte
		play := func(ctx context.Context, wav []byte) error {
			played = wav
			return nil
		}

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, play, zerolog.Nop())

		err := provider.Speak(context.Background(), "hello")

		require.NoError(t, err)
		assert.Equal(t, fakeWAV, played)
	})

	t.Run("propagates playback failure", func(t *testing.T) {
		playErr := errors.New("device busy")
		play := func(ctx context.Context, wav []byte) error {
			return playErr
		}

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, play, zerolog.Nop())

		err := provider.Speak(context.Background(), "hello")

		assert.ErrorIs(t, err, playErr)
	})

	t.Run("no playback sink", func(t *testing.T) {
		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, nil, zerolog.Nop())

		err := provider.Speak(context.Background(), "hello")

		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})
}

func TestPiperServerProvider_Health(t *testing.T) {
	t.Run("server up", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest) // no text given, still reachable
		}))
		defer server.Close()

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, nil, zerolog.Nop())

		assert.NoError(t, provider.Health(context.Background()))
	})

	t.Run("server down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		provider := NewPiperServerProvider(&PiperServerConfig{
			ServerURL: server.URL,
			Timeout:   5,
		}, nil, zerolog.Nop())

		assert.ErrorIs(t, provider.Health(context.Background()), ErrProviderUnavailable)
	})
}

func TestPiperServerProvider_Capabilities(t *testing.T) {
	provider := NewPiperServerProvider(nil, nil, zerolog.Nop())

	caps := provider.Capabilities()

	assert.True(t, caps.IsLocal)
	assert.Contains(t, caps.SupportedLanguages, "en")
}
