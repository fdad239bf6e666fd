package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"private-chat/internal/auth"
	"private-chat/internal/session"
)

// Sessions serves one websocket connection, identity is nil for anonymous peers
type Sessions interface {
	Serve(ctx context.Context, identity *auth.Identity, t session.Transport)
}

// Server defines fields used in HTTP processing
type Server struct {
	logger          *zap.SugaredLogger
	httpServer      *http.Server
	sessions        Sessions
	upgrader        websocket.Upgrader
	writeTimeout    time.Duration
	maxFrameBytes   int64
	shutdownTimeout time.Duration
	afterShutdown   []func()

	// cancel stops every running session
	cancel context.CancelFunc
	active sync.WaitGroup
}

// NewServer returns new Server struct with provided zap.SugaredLogger, session handler and token verifier
func NewServer(logger *zap.SugaredLogger, sessions Sessions, verifier *auth.Verifier, opts ...Option) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("nil sessions")
	}
	if verifier == nil {
		return nil, fmt.Errorf("nil verifier")
	}

	srv := &Server{
		logger:   logger,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	srv.cancel = cancel

	cfg := &config{
		httpServer: &http.Server{
			Addr:        "0.0.0.0:9000",
			BaseContext: func(_ net.Listener) context.Context { return baseCtx },
		},
		handlers: map[string]http.Handler{
			"/ws":      enforceWebsocket(authenticate(http.HandlerFunc(srv.serveWS), verifier, logger)),
			"/metrics": promhttp.Handler(),
			"/health":  http.HandlerFunc(health),
		},
		shutdownTimeout: 10 * time.Second,
		writeTimeout:    10 * time.Second,
		maxFrameBytes:   1 << 20,
	}

	opts = append(opts, applyLog(logger.Desugar()), registerHandlers())
	for _, opt := range opts {
		opt.apply(cfg)
	}

	srv.httpServer = cfg.httpServer
	srv.shutdownTimeout = cfg.shutdownTimeout
	srv.writeTimeout = cfg.writeTimeout
	srv.maxFrameBytes = cfg.maxFrameBytes
	srv.afterShutdown = cfg.afterShutdown

	return srv, nil
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	t := &wsTransport{
		w:             w,
		r:             r,
		upgrader:      &s.upgrader,
		writeTimeout:  s.writeTimeout,
		maxFrameBytes: s.maxFrameBytes,
	}

	var identity *auth.Identity
	if id, ok := auth.FromContext(r.Context()); ok {
		identity = &id
	}

	s.active.Add(1)
	defer s.active.Done()

	s.sessions.Serve(r.Context(), identity, t)
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		s.shutdown()

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	for _, f := range s.afterShutdown {
		f()
	}

	return nil
}

// shutdown stops accepting requests, then cancels websocket sessions and waits for them to leave
func (s *Server) shutdown() {
	s.logger.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf("srv.Shutdown: %v", err)
	}
	s.logger.Info("HTTP server is stopped")

	// hijacked connections are not tracked by http.Server
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Websocket sessions are closed")
	case <-ctx.Done():
		s.logger.Warn("Websocket sessions did not close in time")
	}
}
