// Package testutil provides fake local engines for integration tests: an
// Ollama lookalike, a whisper.cpp server, and a piper HTTP server, each
// speaking just enough of the real wire format for the providers to work
// against them unmodified.
package testutil

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// DefaultReply is what MockOllama answers when no scripted reply matches.
const DefaultReply = "I understand. How else can I help?"

// MockOllama serves the two Ollama endpoints the assistant uses: the model
// listing (/api/tags) and the chat completion (/api/chat). Replies are picked
// by keyword match against the latest user message; unmatched prompts get
// DefaultReply.
func MockOllama(t testing.TB, models []string, replies map[string]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, "Ollama is running")

		case "/api/tags":
			type modelDetails struct {
				ParameterSize string `json:"parameter_size"`
			}
			type modelTag struct {
				Name    string       `json:"name"`
				Model   string       `json:"model"`
				Size    int64        `json:"size"`
				Details modelDetails `json:"details"`
			}
			listing := struct {
				Models []modelTag `json:"models"`
			}{Models: []modelTag{}}
			for _, name := range models {
				listing.Models = append(listing.Models, modelTag{
					Name:    name,
					Model:   name,
					Size:    2_000_000_000,
					Details: modelDetails{ParameterSize: "3.2B"},
				})
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(listing)

		case "/api/chat":
			var chatReq struct {
				Model    string `json:"model"`
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid chat request"})
				return
			}

			prompt := ""
			for _, m := range chatReq.Messages {
				if m.Role == "user" {
					prompt = m.Content
				}
			}

			reply := DefaultReply
			for keyword, canned := range replies {
				if strings.Contains(strings.ToLower(prompt), strings.ToLower(keyword)) {
					reply = canned
					break
				}
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"model":   chatReq.Model,
				"message": map[string]string{"role": "assistant", "content": reply},
				"done":    true,
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// MockWhisperServer answers every /inference upload with the given
// transcript, mirroring whisper.cpp's JSON response. Uploads without audio
// get a 400 like the real server.
func MockWhisperServer(t testing.TB, transcript string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			// Health probes hit the root path.
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "failed to parse multipart form"})
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "no audio file"})
			return
		}
		defer file.Close()

		audio, err := io.ReadAll(file)
		if err != nil || len(audio) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "empty audio"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": transcript})
	}))
}

// MockPiperServer answers every synthesis POST with a short silent WAV, the
// same shape the piper HTTP server produces.
func MockPiperServer(t testing.TB) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			// Health probes GET the root; the real server rejects them
			// without falling over.
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		text, err := io.ReadAll(r.Body)
		if err != nil || len(strings.TrimSpace(string(text))) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "no text given")
			return
		}

		w.Header().Set("Content-Type", "audio/wav")
		w.Write(GenerateTestAudio(t, 250*time.Millisecond))
	}))
}

// GenerateTestAudio builds a silent 16 kHz mono 16-bit PCM WAV of the given
// duration, the format the capture pipeline records in.
func GenerateTestAudio(t testing.TB, duration time.Duration) []byte {
	t.Helper()

	const (
		sampleRate    = 16000
		channels      = 1
		bitsPerSample = 16
	)

	numSamples := int(duration.Seconds() * sampleRate)
	dataSize := numSamples * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	// Sample bytes stay zeroed: digital silence.

	return buf
}
