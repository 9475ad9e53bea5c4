// Package bridge runs the per-connection state machine that mediates between
// a client websocket and its upstream speech session.
package bridge

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GasCanCharlie/chambers-api/internal/auth"
	"github.com/GasCanCharlie/chambers-api/internal/observability"
	"github.com/GasCanCharlie/chambers-api/internal/ratelimit"
	"github.com/GasCanCharlie/chambers-api/internal/realtime"
)

// State is the lifecycle position of one client connection.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateSessionActive   State = "session_active"
	StateEnded           State = "ended"
)

// UpstreamSession is the contract the bridge needs from the realtime client.
type UpstreamSession interface {
	Connect(ctx context.Context) error
	SendAudio(audioB64 string) error
	Interrupt() error
	Close()
}

// UpstreamFactory builds one upstream session for the given voice, wired to
// the given sink. The bridge creates at most one live session per connection.
type UpstreamFactory func(voice string, sink realtime.EventSink) UpstreamSession

// SessionRecorder persists reflection session lifecycle records. Audio never
// passes through it.
type SessionRecorder interface {
	ReflectionStarted(ctx context.Context, sessionID, subjectID string, startedAt time.Time) error
	ReflectionEnded(ctx context.Context, sessionID, reason string, endedAt time.Time) error
}

// Config holds the bridge's fixed parameters.
type Config struct {
	DefaultVoice string
	// SessionTimeout is absolute, measured from session.start. It is never
	// renewed by activity.
	SessionTimeout time.Duration
}

// Bridge owns the shared collaborators; one instance serves many connections.
type Bridge struct {
	cfg      Config
	verifier auth.Verifier
	limiter  *ratelimit.Limiter
	upstream UpstreamFactory
	metrics  *observability.Metrics
	recorder SessionRecorder
}

func New(cfg Config, verifier auth.Verifier, limiter *ratelimit.Limiter, upstream UpstreamFactory, metrics *observability.Metrics, recorder SessionRecorder) *Bridge {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 10 * time.Minute
	}
	return &Bridge{
		cfg:      cfg,
		verifier: verifier,
		limiter:  limiter,
		upstream: upstream,
		metrics:  metrics,
		recorder: recorder,
	}
}

// HandleConn runs the full lifecycle of one accepted client websocket and
// returns once the connection has ended and all resources are released.
func (b *Bridge) HandleConn(ctx context.Context, ws *websocket.Conn) {
	c := newConn(b, ws)
	b.metrics.ActiveConnections.Inc()
	defer b.metrics.ActiveConnections.Dec()

	go c.writeLoop()
	c.readLoop(ctx)
	<-c.writerDone
}
