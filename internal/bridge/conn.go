package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/GasCanCharlie/chambers-api/internal/audit"
	"github.com/GasCanCharlie/chambers-api/internal/protocol"
)

const (
	writeTimeout    = 10 * time.Second
	maxFrameSize    = 2 << 20
	outboundBacklog = 256
)

type conn struct {
	b  *Bridge
	id string
	ws *websocket.Conn

	outbound   chan any
	writerDone chan struct{}

	mu          sync.Mutex
	state       State
	subject     string
	session     UpstreamSession
	timer       *time.Timer
	ended       bool
	closeReason string
	startedAt   time.Time
}

func newConn(b *Bridge, ws *websocket.Conn) *conn {
	return &conn{
		b:          b,
		id:         uuid.NewString(),
		ws:         ws,
		outbound:   make(chan any, outboundBacklog),
		writerDone: make(chan struct{}),
		state:      StateUnauthenticated,
	}
}

// writeLoop is the single writer for the client socket. It drains the
// outbound channel and, once the channel closes, completes the close
// handshake with code 1000 and the termination reason.
func (c *conn) writeLoop() {
	defer close(c.writerDone)

	writeFailed := false
	for msg := range c.outbound {
		if writeFailed {
			continue
		}
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.ws.WriteJSON(msg); err != nil {
			writeFailed = true
			continue
		}
		if t, ok := messageTypeOf(msg); ok {
			c.b.metrics.Frames.WithLabelValues("outbound", string(t)).Inc()
		}
	}

	c.mu.Lock()
	reason := c.closeReason
	c.mu.Unlock()
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
	_ = c.ws.Close()
}

func (c *conn) readLoop(ctx context.Context) {
	c.ws.SetReadLimit(maxFrameSize)
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.terminate("Connection closed")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.handleFrame(ctx, data)
		if c.isEnded() {
			return
		}
	}
}

func (c *conn) handleFrame(ctx context.Context, data []byte) {
	parsed, err := protocol.ParseClientMessage(data)
	if err != nil && !errors.Is(err, protocol.ErrUnsupportedType) {
		c.sendError(protocol.CodeInvalidMessage, "Invalid message format")
		return
	}

	if msg, ok := parsed.(protocol.Auth); ok {
		c.b.metrics.Frames.WithLabelValues("inbound", string(protocol.TypeAuth)).Inc()
		c.handleAuth(ctx, msg)
		return
	}

	// Every frame except auth passes through the rate limiter first; a
	// rejection drops the frame entirely.
	if !c.b.limiter.Allow(c.id) {
		c.sendError(protocol.CodeRateLimit, "Rate limit exceeded")
		return
	}

	switch msg := parsed.(type) {
	case protocol.SessionStart:
		c.b.metrics.Frames.WithLabelValues("inbound", string(protocol.TypeSessionStart)).Inc()
		c.handleSessionStart(ctx, msg)
	case protocol.AudioChunk:
		c.b.metrics.Frames.WithLabelValues("inbound", string(protocol.TypeAudioChunk)).Inc()
		c.handleAudioChunk(msg)
	case protocol.Interrupt:
		c.b.metrics.Frames.WithLabelValues("inbound", string(protocol.TypeInterrupt)).Inc()
		c.handleInterrupt()
	case protocol.SessionEnd:
		c.b.metrics.Frames.WithLabelValues("inbound", string(protocol.TypeSessionEnd)).Inc()
		c.terminate("Client requested end")
	case protocol.Envelope:
		// Unknown but well-formed frame type. Tolerated for protocol
		// additions: no state change, no error back to the client.
		audit.L().Info("bridge: ignoring unknown frame", "conn", c.id, "type", string(msg.Type))
	}
}

func (c *conn) handleAuth(ctx context.Context, msg protocol.Auth) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateUnauthenticated {
		audit.L().Info("bridge: auth frame outside unauthenticated state", "conn", c.id, "state", string(state))
		return
	}

	if strings.TrimSpace(msg.Token) == "" {
		c.sendError(protocol.CodeAuthRequired, "Authentication token required")
		c.terminate("Authentication required")
		return
	}

	subject, err := c.b.verifier.Verify(ctx, msg.Token)
	if err != nil {
		audit.L().Warn("bridge: auth failed", "conn", c.id, "error", err)
		c.sendError(protocol.CodeAuthFailed, "Authentication failed")
		c.terminate("Authentication failed")
		return
	}

	c.mu.Lock()
	c.subject = subject
	c.state = StateAuthenticated
	c.mu.Unlock()

	c.send(protocol.AuthSuccess{Type: protocol.TypeAuthSuccess})
	audit.L().Info("bridge: authenticated", "conn", c.id, "subject", subject)
}

func (c *conn) handleSessionStart(ctx context.Context, msg protocol.SessionStart) {
	c.mu.Lock()
	if c.subject == "" {
		c.mu.Unlock()
		c.sendError(protocol.CodeNotAuthenticated, "Authenticate before starting a session")
		return
	}
	// At most one live upstream session: detach and close any previous one
	// before creating its replacement.
	prev := c.session
	c.session = nil
	prevTimer := c.timer
	c.timer = nil
	c.mu.Unlock()

	if prevTimer != nil {
		prevTimer.Stop()
	}
	if prev != nil {
		prev.Close()
		c.b.metrics.SessionEvents.WithLabelValues("replaced").Inc()
	}

	voice := c.b.cfg.DefaultVoice
	if msg.Config != nil && strings.TrimSpace(msg.Config.Voice) != "" {
		voice = msg.Config.Voice
	}

	sink := &upstreamSink{c: c}
	sess := c.b.upstream(voice, sink)
	sink.owner = sess

	if err := sess.Connect(ctx); err != nil {
		audit.L().Warn("bridge: upstream connect failed", "conn", c.id, "error", err)
		sess.Close()
		c.sendError(protocol.CodeConnectionFailed, "Could not reach the reflection service")
		return
	}

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		sess.Close()
		return
	}
	c.session = sess
	c.state = StateSessionActive
	c.startedAt = time.Now()
	c.timer = time.AfterFunc(c.b.cfg.SessionTimeout, func() {
		c.terminate("Session timeout")
	})
	subject := c.subject
	c.mu.Unlock()

	c.send(protocol.SessionReady{Type: protocol.TypeSessionReady, SessionID: c.id})
	c.b.metrics.SessionEvents.WithLabelValues("started").Inc()
	if c.b.recorder != nil {
		if err := c.b.recorder.ReflectionStarted(ctx, c.id, subject, time.Now().UTC()); err != nil {
			audit.L().Warn("bridge: record session start failed", "conn", c.id, "error", err)
		}
	}
}

func (c *conn) handleAudioChunk(msg protocol.AudioChunk) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		c.sendError(protocol.CodeNoSession, "No active session")
		return
	}
	if err := sess.SendAudio(msg.Audio); err != nil {
		audit.L().Warn("bridge: forward audio failed", "conn", c.id, "error", err, audit.Payload("audio", msg.Audio))
	}
}

func (c *conn) handleInterrupt() {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return
	}
	if err := sess.Interrupt(); err != nil {
		audit.L().Warn("bridge: interrupt failed", "conn", c.id, "error", err)
	}
}

// terminate is the single cleanup routine. Every termination trigger routes
// through it; the ended guard makes concurrent triggers harmless and
// guarantees exactly one session.ended frame per connection.
func (c *conn) terminate(reason string) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	c.state = StateEnded
	c.closeReason = reason
	sess := c.session
	c.session = nil
	timer := c.timer
	c.timer = nil
	startedAt := c.startedAt
	select {
	case c.outbound <- protocol.SessionEnded{Type: protocol.TypeSessionEnded, Reason: reason}:
	default:
	}
	close(c.outbound)
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if sess != nil {
		sess.Close()
	}
	c.b.limiter.Remove(c.id)

	if !startedAt.IsZero() {
		c.b.metrics.ObserveSessionDuration(time.Since(startedAt))
		c.b.metrics.SessionEvents.WithLabelValues("ended").Inc()
		if c.b.recorder != nil {
			if err := c.b.recorder.ReflectionEnded(context.Background(), c.id, reason, time.Now().UTC()); err != nil {
				audit.L().Warn("bridge: record session end failed", "conn", c.id, "error", err)
			}
		}
	}
	audit.L().Info("bridge: connection ended", "conn", c.id, "reason", reason)
}

func (c *conn) isEnded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// send queues one outbound frame. Frames are dropped when the connection has
// ended or the writer is saturated; the websocket stays single-writer.
func (c *conn) send(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	select {
	case c.outbound <- msg:
	default:
	}
}

func (c *conn) sendError(code, message string) {
	c.send(protocol.NewError(code, message))
	c.b.metrics.BridgeErrors.WithLabelValues(code).Inc()
}
