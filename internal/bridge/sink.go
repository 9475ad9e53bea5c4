package bridge

import (
	"github.com/GasCanCharlie/chambers-api/internal/protocol"
)

// upstreamSink forwards decoded upstream events to the client as protocol
// frames. It remembers which session it belongs to so a detached session
// closing does not tear down the connection that replaced it.
type upstreamSink struct {
	c     *conn
	owner UpstreamSession
}

func (s *upstreamSink) AudioDelta(audioB64, itemID string) {
	s.c.send(protocol.AudioDelta{Type: protocol.TypeAudioDelta, Audio: audioB64, ItemID: itemID})
}

func (s *upstreamSink) AudioDone(itemID string) {
	s.c.send(protocol.AudioDone{Type: protocol.TypeAudioDone, ItemID: itemID})
}

func (s *upstreamSink) TranscriptDelta(text, itemID string) {
	s.c.send(protocol.TranscriptDelta{Type: protocol.TypeTranscriptDelta, Text: text, ItemID: itemID})
}

func (s *upstreamSink) TranscriptDone(text, itemID string) {
	s.c.send(protocol.TranscriptDone{Type: protocol.TypeTranscriptDone, Text: text, ItemID: itemID})
}

func (s *upstreamSink) SpeechStarted() {
	s.c.send(protocol.SpeechStarted{Type: protocol.TypeSpeechStarted})
}

func (s *upstreamSink) SpeechStopped() {
	s.c.send(protocol.SpeechStopped{Type: protocol.TypeSpeechStopped})
}

// Error reports an upstream runtime failure to the client. The session is
// not torn down; only close-type triggers end it.
func (s *upstreamSink) Error(message string) {
	s.c.b.metrics.UpstreamErrors.Inc()
	s.c.sendError(protocol.CodeOpenAIError, message)
}

func (s *upstreamSink) Closed() {
	s.c.mu.Lock()
	current := s.c.session
	s.c.mu.Unlock()
	if current == s.owner {
		s.c.terminate("Upstream closed connection")
	}
}
