package bridge

import "github.com/GasCanCharlie/chambers-api/internal/protocol"

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.AuthSuccess:
		return m.Type, true
	case protocol.SessionReady:
		return m.Type, true
	case protocol.AudioDelta:
		return m.Type, true
	case protocol.AudioDone:
		return m.Type, true
	case protocol.TranscriptDelta:
		return m.Type, true
	case protocol.TranscriptDone:
		return m.Type, true
	case protocol.SpeechStarted:
		return m.Type, true
	case protocol.SpeechStopped:
		return m.Type, true
	case protocol.SessionEnded:
		return m.Type, true
	case protocol.ErrorFrame:
		return m.Type, true
	default:
		return "", false
	}
}
