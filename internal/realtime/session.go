// Package realtime owns the outbound connection to the OpenAI realtime
// speech API and decodes its event stream into a small typed sink.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GasCanCharlie/chambers-api/internal/audit"
)

// EventSink receives decoded upstream events. Implementations must be safe
// to call from the session's read goroutine.
type EventSink interface {
	AudioDelta(audioB64, itemID string)
	AudioDone(itemID string)
	TranscriptDelta(text, itemID string)
	TranscriptDone(text, itemID string)
	SpeechStarted()
	SpeechStopped()
	Error(message string)
	Closed()
}

// Conn is the subset of *websocket.Conn the session uses; split out so tests
// can stand in a pipe-backed fake.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// DialFunc opens the upstream websocket. Injectable for tests.
type DialFunc func(ctx context.Context, urlStr string, header http.Header) (Conn, error)

func gorillaDial(ctx context.Context, urlStr string, header http.Header) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, urlStr, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config describes one upstream session.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Voice          string
	Instructions   string
	ConnectTimeout time.Duration
	Dial           DialFunc
}

const (
	defaultConnectTimeout = 10 * time.Second

	// Server-side voice activity detection parameters. Fixed: the client has
	// no push-to-talk, turn segmentation happens entirely upstream.
	vadThreshold       = 0.5
	vadPrefixPaddingMS = 300
	vadSilenceMS       = 500
)

// Session wraps one outbound realtime connection.
type Session struct {
	cfg  Config
	sink EventSink

	writeMu   sync.Mutex
	closeOnce sync.Once

	mu            sync.Mutex
	conn          Conn
	connected     bool
	currentItemID string
}

func NewSession(cfg Config, sink EventSink) *Session {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.Dial == nil {
		cfg.Dial = gorillaDial
	}
	return &Session{cfg: cfg, sink: sink}
}

// Connect dials the upstream API and sends the session configuration frame.
// It fails if the websocket handshake does not complete within the connect
// timeout. It returns once the handshake is done; it does not wait for the
// session.update acknowledgment.
func (s *Session) Connect(ctx context.Context) error {
	u, err := url.Parse(strings.TrimRight(s.cfg.BaseURL, "/"))
	if err != nil {
		return fmt.Errorf("parse realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", s.cfg.Model)
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+s.cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	conn, err := s.cfg.Dial(dialCtx, u.String(), headers)
	if err != nil {
		return fmt.Errorf("dial realtime websocket: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	if err := s.writeJSON(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"modalities":   []string{"text", "audio"},
			"instructions": s.cfg.Instructions,
			"voice":        s.cfg.Voice,
			"input_audio_format":  "pcm16",
			"output_audio_format": "pcm16",
			"input_audio_transcription": map[string]any{
				"model": "whisper-1",
			},
			"turn_detection": map[string]any{
				"type":                "server_vad",
				"threshold":           vadThreshold,
				"prefix_padding_ms":   vadPrefixPaddingMS,
				"silence_duration_ms": vadSilenceMS,
			},
		},
	}); err != nil {
		s.Close()
		return fmt.Errorf("send session config: %w", err)
	}

	go s.readLoop(conn)
	return nil
}

// SendAudio forwards one base64 audio chunk into the upstream input buffer.
// No-op when not connected.
func (s *Session) SendAudio(audioB64 string) error {
	if !s.isConnected() {
		return nil
	}
	return s.writeJSON(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": audioB64,
	})
}

// Interrupt cancels any in-flight response, then clears buffered input.
// Cancellation must go first so generation stops before new input
// accumulates. No-op when not connected.
func (s *Session) Interrupt() error {
	if !s.isConnected() {
		return nil
	}
	if err := s.writeJSON(map[string]any{"type": "response.cancel"}); err != nil {
		return err
	}
	return s.writeJSON(map[string]any{"type": "input_audio_buffer.clear"})
}

// Close tears down the upstream connection. Safe to call multiple times;
// the sink's Closed callback fires exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		conn := s.conn
		s.connected = false
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		if s.sink != nil {
			s.sink.Closed()
		}
	})
}

func (s *Session) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) writeJSON(payload map[string]any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(payload)
}

func (s *Session) readLoop(conn Conn) {
	defer s.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleEvent(data)
	}
}

func (s *Session) handleEvent(data []byte) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		// Undecodable upstream frames are dropped; they never reach the
		// client and never crash the session.
		audit.L().Warn("realtime: dropping undecodable frame", "error", err)
		return
	}

	eventType := asString(raw["type"])
	switch eventType {
	case "session.created", "session.updated":
		// informational
	case "input_audio_buffer.speech_started":
		s.sink.SpeechStarted()
	case "input_audio_buffer.speech_stopped":
		s.sink.SpeechStopped()
	case "response.output_item.added":
		if item, ok := raw["item"].(map[string]any); ok {
			if asString(item["type"]) == "message" {
				s.mu.Lock()
				s.currentItemID = asString(item["id"])
				s.mu.Unlock()
			}
		}
	case "response.audio.delta":
		s.sink.AudioDelta(asString(raw["delta"]), s.resolveItemID(raw))
	case "response.audio.done":
		s.sink.AudioDone(s.resolveItemID(raw))
	case "response.audio_transcript.delta":
		s.sink.TranscriptDelta(asString(raw["delta"]), s.resolveItemID(raw))
	case "response.audio_transcript.done":
		s.sink.TranscriptDone(asString(raw["transcript"]), s.resolveItemID(raw))
	case "response.done":
		s.mu.Lock()
		s.currentItemID = ""
		s.mu.Unlock()
	case "error":
		s.sink.Error(errorMessage(raw))
	default:
		audit.L().Debug("realtime: ignoring event", "type", eventType)
	}
}

// resolveItemID prefers the event's own item_id, then the most recent
// message item recorded from response.output_item.added, then the literal
// "unknown" sentinel.
func (s *Session) resolveItemID(raw map[string]any) string {
	if id := asString(raw["item_id"]); id != "" {
		return id
	}
	s.mu.Lock()
	id := s.currentItemID
	s.mu.Unlock()
	if id != "" {
		return id
	}
	return "unknown"
}

func errorMessage(raw map[string]any) string {
	if errObj, ok := raw["error"].(map[string]any); ok {
		if msg := asString(errObj["message"]); msg != "" {
			return msg
		}
	}
	return "upstream error"
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
