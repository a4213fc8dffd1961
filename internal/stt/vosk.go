package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// VoskProvider streams PCM audio to a vosk-server over WebSocket.
//
// Protocol: the client sends a JSON config frame, then raw PCM chunks as
// binary messages. The server answers with {"partial": ...} frames while an
// utterance is in flight and {"text": ...} frames when one is finalized.
// Sending {"eof": 1} flushes the last utterance before the server closes.
type VoskProvider struct {
	config *VoskConfig
	logger zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	transcriptCh chan *TranscribeResponse
	errorCh      chan error
	closeCh      chan struct{}
}

// VoskConfig holds configuration for the vosk-server provider
type VoskConfig struct {
	ServerURL  string `json:"server_url"`
	SampleRate int    `json:"sample_rate"`
	Timeout    int    `json:"timeout_seconds"`
}

// DefaultVoskConfig returns sensible defaults
func DefaultVoskConfig() *VoskConfig {
	return &VoskConfig{
		ServerURL:  "ws://localhost:2700",
		SampleRate: 16000,
		Timeout:    30,
	}
}

// NewVoskProvider creates a new vosk-server STT provider
func NewVoskProvider(config *VoskConfig, logger zerolog.Logger) *VoskProvider {
	if config == nil {
		config = DefaultVoskConfig()
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if config.Timeout == 0 {
		config.Timeout = 30
	}

	return &VoskProvider{
		config: config,
		logger: logger.With().Str("provider", "vosk").Logger(),
	}
}

// Name returns the provider identifier
func (p *VoskProvider) Name() string {
	return "vosk"
}

// StartStreaming opens the WebSocket connection and sends the config frame.
func (p *VoskProvider) StartStreaming(ctx context.Context) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.conn != nil {
		return fmt.Errorf("streaming already active")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, p.config.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	configFrame := map[string]any{
		"config": map[string]any{
			"sample_rate": p.config.SampleRate,
		},
	}
	if err := conn.WriteJSON(configFrame); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send config frame: %w", err)
	}

	p.conn = conn
	p.transcriptCh = make(chan *TranscribeResponse, 10)
	p.errorCh = make(chan error, 1)
	p.closeCh = make(chan struct{})

	go p.readResults()

	p.logger.Debug().Str("url", p.config.ServerURL).Msg("Vosk streaming started")
	return nil
}

// readResults reads server frames until the connection closes.
func (p *VoskProvider) readResults() {
	defer close(p.transcriptCh)

	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			select {
			case <-p.closeCh:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			select {
			case p.errorCh <- fmt.Errorf("vosk read error: %w", err):
			default:
			}
			return
		}

		var result struct {
			Partial string `json:"partial"`
			Text    string `json:"text"`
			Result  []struct {
				Conf  float64 `json:"conf"`
				Start float64 `json:"start"`
				End   float64 `json:"end"`
				Word  string  `json:"word"`
			} `json:"result"`
		}
		if err := json.Unmarshal(message, &result); err != nil {
			p.logger.Warn().Err(err).Msg("Unparseable vosk frame")
			continue
		}

		if result.Text == "" && result.Partial == "" {
			continue
		}

		resp := &TranscribeResponse{
			Text:    result.Text,
			IsFinal: result.Text != "",
		}
		if resp.Text == "" {
			resp.Text = result.Partial
		}

		if len(result.Result) > 0 {
			var confSum float64
			for i, w := range result.Result {
				confSum += w.Conf
				resp.Segments = append(resp.Segments, TranscribeSegment{
					ID:    i,
					Start: time.Duration(w.Start * float64(time.Second)),
					End:   time.Duration(w.End * float64(time.Second)),
					Text:  w.Word,
				})
			}
			resp.Confidence = confSum / float64(len(result.Result))
		}

		select {
		case p.transcriptCh <- resp:
		case <-p.closeCh:
			return
		}
	}
}

// SendAudio writes one PCM chunk as a binary frame.
func (p *VoskProvider) SendAudio(chunk []byte) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.conn == nil {
		return fmt.Errorf("streaming not started")
	}
	return p.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// StopStreaming flushes the final utterance and closes the connection.
func (p *VoskProvider) StopStreaming() error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.conn == nil {
		return nil
	}

	// Ask the server to finalize whatever is buffered.
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to send eof frame")
	}

	close(p.closeCh)
	err := p.conn.Close()
	p.conn = nil
	return err
}

// Transcribe sends a whole capture through the streaming connection and
// collects the finalized utterances.
func (p *VoskProvider) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error) {
	if len(req.Audio) == 0 {
		return nil, ErrAudioTooShort
	}

	pcm := req.Audio
	if req.Format == "wav" {
		// Strip the RIFF header; vosk wants raw samples.
		if len(pcm) > 44 {
			pcm = pcm[44:]
		}
	}

	if err := p.StartStreaming(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()

	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = p.config.SampleRate
	}
	chunkSize := sampleRate * 2 / 10 // 100ms of 16-bit mono

	sendErr := make(chan error, 1)
	go func() {
		for offset := 0; offset < len(pcm); offset += chunkSize {
			end := offset + chunkSize
			if end > len(pcm) {
				end = len(pcm)
			}
			if err := p.SendAudio(pcm[offset:end]); err != nil {
				sendErr <- err
				return
			}
		}
		sendErr <- p.StopStreaming()
	}()

	var finals []string
	var lastPartial string
	var confidence float64
	var segments []TranscribeSegment

	timeout := time.After(time.Duration(p.config.Timeout) * time.Second)

collect:
	for {
		select {
		case resp, ok := <-p.transcriptCh:
			if !ok {
				break collect
			}
			if resp.IsFinal {
				finals = append(finals, resp.Text)
				confidence = resp.Confidence
				segments = append(segments, resp.Segments...)
			} else {
				lastPartial = resp.Text
			}
		case err := <-p.errorCh:
			p.StopStreaming()
			return nil, err
		case <-timeout:
			p.StopStreaming()
			return nil, fmt.Errorf("%w: no result after %ds", ErrTimeout, p.config.Timeout)
		case <-ctx.Done():
			p.StopStreaming()
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
	}

	if err := <-sendErr; err != nil {
		return nil, fmt.Errorf("vosk send failed: %w", err)
	}

	text := strings.TrimSpace(strings.Join(finals, " "))
	if text == "" {
		text = strings.TrimSpace(lastPartial)
	}

	return &TranscribeResponse{
		Text:           text,
		Confidence:     confidence,
		Language:       req.Language,
		Segments:       segments,
		ProcessingTime: time.Since(startTime),
		IsFinal:        true,
	}, nil
}

// Health dials the server and closes the connection immediately
func (p *VoskProvider) Health(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, p.config.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return conn.Close()
}

// Capabilities returns the provider's feature set
func (p *VoskProvider) Capabilities() ProviderCapabilities {
	return ProviderCapabilities{
		SupportsStreaming:  true,
		SupportsTimestamps: true,
		SupportedLanguages: []string{"en", "fr", "es", "de", "ru", "zh"},
		AvgLatencyMs:       300,
		RequiresGPU:        false,
		IsLocal:            true,
	}
}
