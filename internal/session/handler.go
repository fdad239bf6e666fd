// Package session runs the per-connection chat protocol: join, presence,
// command execution and leave.
package session

import (
	"context"
	"sync"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"private-chat/internal/auth"
	"private-chat/internal/fanout"
	"private-chat/internal/groups"
	"private-chat/internal/metrics"
	"private-chat/internal/pool"
	"private-chat/internal/protocol"
	"private-chat/internal/storage/zapadapter"
)

// Close codes sent to peers besides the configured unauthenticated one
const (
	CloseNormal        = 1000
	CloseInternalError = 1011
)

// Transport is one bidirectional frame connection.
// Write is called from a single goroutine, Read from another one.
type Transport interface {
	// Accept completes the connection handshake
	Accept(ctx context.Context) error
	// Read blocks until the next frame arrives, the connection is closed or ctx is done
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, frame []byte) error
	// Close sends close code to the peer, completing the handshake first if required
	Close(code int, reason string) error
}

// Handler serves sessions sharing one fanout fabric, storage and worker pool
type Handler struct {
	logger *zap.SugaredLogger
	fabric fanout.Fabric
	store  Storage
	groups *groups.Directory
	parser *protocol.Parser
	pool   *pool.Pool
	cfg    config
}

// NewHandler returns Handler publishing to fabric and off-loading every store call to a bounded pool
func NewHandler(logger *zap.SugaredLogger, fabric fanout.Fabric, store Storage, opts ...Option) *Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	p := pool.New(cfg.storageWorkers, cfg.storageTimeout)
	off := &offloaded{next: store, pool: p}

	return &Handler{
		logger: logger,
		fabric: fabric,
		store:  off,
		groups: groups.NewDirectory(logger, off),
		parser: protocol.NewParser(cfg.maxTextLength),
		pool:   p,
		cfg:    cfg,
	}
}

// Serve runs the session of identity over t until the peer goes away or ctx is done.
// A nil identity closes t with the unauthenticated close code without joining any group.
func (h *Handler) Serve(ctx context.Context, identity *auth.Identity, t Transport) {
	if identity == nil {
		metrics.RejectedSessions.Inc()
		h.logger.Infof("Rejecting unauthenticated user with code %d", h.cfg.unauthCloseCode)
		if err := t.Close(h.cfg.unauthCloseCode, "unauthenticated"); err != nil {
			h.logger.Debugf("Cannot close rejected connection: %v", err)
		}
		return
	}

	s := newSession(ctx, h, *identity, t)
	s.run(ctx)
}

// Close waits for storage calls in flight
func (h *Handler) Close(ctx context.Context) error {
	return h.pool.Close(ctx)
}

type session struct {
	h         *Handler
	logger    *zap.SugaredLogger
	id        string
	user      auth.Identity
	group     string
	transport Transport

	mu     sync.Mutex
	out    chan []byte
	closed bool
}

// newSession reuses the request id found in ctx as connection id
func newSession(ctx context.Context, h *Handler, user auth.Identity, t Transport) *session {
	id, ok := zapadapter.ConnIDFromContext(ctx)
	if !ok {
		id = xid.New().String()
	}
	return &session{
		h:         h,
		logger:    h.logger.With("conn_id", id, "user", user.UserID),
		id:        id,
		user:      user,
		group:     groups.GroupName(user.UserID),
		transport: t,
		out:       make(chan []byte, h.cfg.queueSize),
	}
}

func (s *session) ID() string { return s.id }

// Deliver queues frame for writing, frames are dropped when the queue is full or the session is gone
func (s *session) Deliver(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.out <- frame:
	default:
		metrics.OutboundDropped.Inc()
		s.logger.Warn("Outbound queue is full, dropping frame")
	}
}

func (s *session) closeOutbound() {
	s.mu.Lock()
	s.closed = true
	close(s.out)
	s.mu.Unlock()
}

func (s *session) run(ctx context.Context) {
	ctx = zapadapter.NewContextWithConnID(ctx, s.id)
	// cleanup runs after the peer is gone and ctx may be done
	detached := context.WithoutCancel(ctx)

	s.logger.Infof("User %d connected, adding %s to %s", s.user.UserID, s.id, s.group)
	if err := s.h.fabric.Subscribe(ctx, s.group, s); err != nil {
		s.logger.Errorf("Cannot subscribe to own group: %v", err)
		s.closeTransport(CloseInternalError, "subscribe failed")
		return
	}

	if err := s.transport.Accept(ctx); err != nil {
		s.logger.Infof("Cannot accept connection: %v", err)
		s.unsubscribe(detached)
		return
	}

	metrics.OnlineSessions.Inc()
	defer metrics.OnlineSessions.Dec()

	written := make(chan struct{})
	go s.writeLoop(detached, written)

	ctx, cancel := context.WithCancel(ctx)
	frames := make(chan []byte)
	go s.readLoop(ctx, cancel, frames)

	s.presence(ctx, protocol.WentOnline)

	for frame := range frames {
		s.handle(ctx, frame)
	}
	cancel()

	s.logger.Infof("User %d disconnected, removing %s from %s", s.user.UserID, s.id, s.group)
	s.unsubscribe(detached)
	s.presence(detached, protocol.WentOffline)

	s.closeOutbound()
	<-written
	s.closeTransport(CloseNormal, "")
}

// readLoop pushes frames until the transport fails, then cancels the session context
func (s *session) readLoop(ctx context.Context, cancel context.CancelFunc, frames chan<- []byte) {
	defer close(frames)
	defer cancel()

	for {
		frame, err := s.transport.Read(ctx)
		if err != nil {
			s.logger.Debugf("Read loop stopped: %v", err)
			return
		}
		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) writeLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	failed := false
	for frame := range s.out {
		if failed {
			continue
		}
		if err := s.transport.Write(ctx, frame); err != nil {
			s.logger.Debugf("Write failed, discarding outbound frames: %v", err)
			failed = true
		}
	}
}

func (s *session) unsubscribe(ctx context.Context) {
	if err := s.h.fabric.Unsubscribe(ctx, s.group, s); err != nil {
		s.logger.Warnf("Cannot unsubscribe from own group: %v", err)
	}
}

func (s *session) closeTransport(code int, reason string) {
	if err := s.transport.Close(code, reason); err != nil {
		s.logger.Debugf("Cannot close connection: %v", err)
	}
}

// presence publishes WentOnline, WentOffline, IsTyping or TypingStopped to the dialog groups of the user
func (s *session) presence(ctx context.Context, t protocol.MsgType) {
	targets, err := s.h.groups.Targets(context.WithoutCancel(ctx), s.user.UserID)
	if err != nil {
		s.logger.Warnf("Cannot resolve dialog groups for %s: %v", t, err)
		return
	}
	s.logger.Debugf("Sending %s to %v dialog groups", t, targets)

	pk := s.group
	var ev protocol.Event
	switch t {
	case protocol.WentOnline:
		ev = protocol.WentOnlineEvent{UserPK: pk}
	case protocol.WentOffline:
		ev = protocol.WentOfflineEvent{UserPK: pk}
	case protocol.IsTyping:
		ev = protocol.IsTypingEvent{UserPK: pk}
	case protocol.TypingStopped:
		ev = protocol.StoppedTypingEvent{UserPK: pk}
	default:
		return
	}

	for _, g := range targets {
		s.publish(ctx, g, ev)
	}
}

// publish sends ev to group unless the session was torn down, failures are logged
func (s *session) publish(ctx context.Context, group string, ev protocol.Event) {
	if ctx.Err() != nil {
		s.logger.Debugf("Session is gone, skipping %s to %s", ev.Type(), group)
		return
	}
	if err := s.h.fabric.Publish(ctx, group, ev); err != nil {
		metrics.FanoutFailures.Inc()
		s.logger.Warnf("Cannot publish %s to %s: %v", ev.Type(), group, err)
	}
}

// reply sends ev to this connection only
func (s *session) reply(ev protocol.Event) {
	frame, err := protocol.Encode(ev)
	if err != nil {
		s.logger.Errorf("Cannot encode %s: %v", ev.Type(), err)
		return
	}
	s.Deliver(frame)
}
