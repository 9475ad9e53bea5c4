package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants on the client leg.
type MessageType string

const (
	// Client -> server.
	TypeAuth         MessageType = "auth"
	TypeSessionStart MessageType = "session.start"
	TypeAudioChunk   MessageType = "audio.chunk"
	TypeInterrupt    MessageType = "interrupt"
	TypeSessionEnd   MessageType = "session.end"

	// Server -> client.
	TypeAuthSuccess     MessageType = "auth.success"
	TypeSessionReady    MessageType = "session.ready"
	TypeAudioDelta      MessageType = "audio.chunk"
	TypeAudioDone       MessageType = "audio.done"
	TypeTranscriptDelta MessageType = "transcript.delta"
	TypeTranscriptDone  MessageType = "transcript.done"
	TypeSpeechStarted   MessageType = "user.speech_started"
	TypeSpeechStopped   MessageType = "user.speech_stopped"
	TypeSessionEnded    MessageType = "session.ended"
	TypeError           MessageType = "error"
)

// Machine-readable error codes carried on error frames.
const (
	CodeAuthRequired     = "AUTH_REQUIRED"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeNoSession        = "NO_SESSION"
	CodeRateLimit        = "RATE_LIMIT"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeOpenAIError      = "OPENAI_ERROR"
	CodeInvalidMessage   = "INVALID_MESSAGE"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type Auth struct {
	Type  MessageType `json:"type"`
	Token string      `json:"token"`
}

type SessionStartConfig struct {
	Voice string `json:"voice,omitempty"`
}

type SessionStart struct {
	Type   MessageType         `json:"type"`
	Config *SessionStartConfig `json:"config,omitempty"`
}

type AudioChunk struct {
	Type  MessageType `json:"type"`
	Audio string      `json:"audio"`
}

type Interrupt struct {
	Type MessageType `json:"type"`
}

type SessionEnd struct {
	Type MessageType `json:"type"`
}

type AuthSuccess struct {
	Type MessageType `json:"type"`
}

type SessionReady struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
}

type AudioDelta struct {
	Type   MessageType `json:"type"`
	Audio  string      `json:"audio"`
	ItemID string      `json:"itemId"`
}

type AudioDone struct {
	Type   MessageType `json:"type"`
	ItemID string      `json:"itemId"`
}

type TranscriptDelta struct {
	Type   MessageType `json:"type"`
	Text   string      `json:"text"`
	ItemID string      `json:"itemId"`
}

type TranscriptDone struct {
	Type   MessageType `json:"type"`
	Text   string      `json:"text"`
	ItemID string      `json:"itemId"`
}

type SpeechStarted struct {
	Type MessageType `json:"type"`
}

type SpeechStopped struct {
	Type MessageType `json:"type"`
}

type SessionEnded struct {
	Type   MessageType `json:"type"`
	Reason string      `json:"reason"`
}

type ErrorFrame struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
}

// NewError builds an outbound error frame.
func NewError(code, message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Message: message, Code: code}
}

// ParseClientMessage decodes one inbound client frame into its typed struct.
// Unknown but well-formed types are returned as a bare Envelope so the caller
// can log and ignore them without erroring the connection.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeAuth:
		var msg Auth
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeSessionStart:
		var msg SessionStart
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeAudioChunk:
		var msg AudioChunk
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeInterrupt:
		return Interrupt{Type: env.Type}, nil
	case TypeSessionEnd:
		return SessionEnd{Type: env.Type}, nil
	default:
		return env, ErrUnsupportedType
	}
}
