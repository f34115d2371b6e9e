// Package server implements the TCP chat server: the accept loop, per-connection
// sessions and the coordinated shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("server: chat server closed")

// deadliner is implemented by *net.TCPListener.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// Server accepts connections and runs one session goroutine per connection.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	registry *Registry
	hub      *Hub

	mu       sync.Mutex
	listener net.Listener
	active   map[*Client]struct{}
	wg       sync.WaitGroup

	shuttingDown atomic.Bool
	shutdownOnce sync.Once
	done         chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithTracer overrides the OpenTelemetry tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New creates a Server. A nil cfg uses NewConfig().
func New(cfg *Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}

	s := &Server{
		cfg:      sanitizeConfig(*cfg),
		logger:   slog.Default(),
		tracer:   defaultTracer(),
		registry: NewRegistry(),
		active:   make(map[*Client]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.hub = NewHub(s.registry, s.logger, s.metrics)
	return s
}

// Registry returns the server's client registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Done is closed once shutdown has drained all sessions and closed the listener.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Addr returns the listener address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds the configured TCP address and serves it. A bind
// failure is returned immediately.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called. Each Accept is
// bounded by the configured accept timeout when ln supports deadlines, so
// the shutdown flag is observed at least once per interval.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.setListener(ln); err != nil {
		_ = ln.Close()
		return err
	}
	s.logger.Info("chat server listening", "addr", ln.Addr().String())

	d, canDeadline := ln.(deadliner)
	for {
		if s.shuttingDown.Load() {
			return ErrServerClosed
		}
		if canDeadline {
			if err := d.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout)); err != nil && !s.shuttingDown.Load() {
				s.logger.Warn("set accept deadline failed", "err", err)
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				return ErrServerClosed
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept failed", "err", err)
			return fmt.Errorf("accept: %w", err)
		}

		client := NewClient(conn, conn.RemoteAddr().String(), s.cfg.MaxLineSize, s.cfg.WriteTimeout)
		if !s.track(client) {
			_ = client.Close()
			continue
		}
		s.logger.Debug("connection accepted", "addr", client.Addr(), "session", client.ID())
		go func() {
			defer s.untrack(client)
			s.serveClient(context.Background(), client)
		}()
	}
}

// ServeConn runs a chat session over an already established stream and
// blocks until the session ends. It is used by transports other than the TCP
// listener, such as the websocket gateway.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser, addr string) {
	client := NewClient(rwc, addr, s.cfg.MaxLineSize, s.cfg.WriteTimeout)
	if !s.track(client) {
		_ = client.Close()
		return
	}
	defer s.untrack(client)
	s.serveClient(ctx, client)
}

func (s *Server) setListener(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown.Load() {
		return ErrServerClosed
	}
	if s.listener != nil {
		return errors.New("server: already serving")
	}
	s.listener = ln
	return nil
}

// track records c as in flight. It refuses once shutdown has begun, so the
// WaitGroup never grows while Shutdown waits on it.
func (s *Server) track(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown.Load() {
		return false
	}
	s.active[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	delete(s.active, c)
	s.mu.Unlock()
	s.wg.Done()
}

// Shutdown stops the server: it notifies and closes every registered client,
// closes connections still in their handshake and closes the listener. The
// drain runs once no matter how many times or from how many goroutines
// Shutdown is called. Every call then waits up to timeout for session
// goroutines to finish and returns context.DeadlineExceeded if they did not.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.shutdownOnce.Do(s.drain)

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		s.logger.Warn("shutdown timeout reached, some sessions may still be running")
		return context.DeadlineExceeded
	}
}

func (s *Server) drain() {
	s.logger.Info("shutting down chat server")

	s.mu.Lock()
	s.shuttingDown.Store(true)
	ln := s.listener
	s.mu.Unlock()

	s.hub.shutdownClients(shutdownLine)

	// Sessions that have not finished their handshake are not in the registry.
	s.mu.Lock()
	pending := make([]*Client, 0, len(s.active))
	for c := range s.active {
		pending = append(pending, c)
	}
	s.mu.Unlock()
	for _, c := range pending {
		_ = c.Close()
	}

	if ln != nil {
		if err := ln.Close(); err != nil && !isExpectedCloseError(err) {
			s.logger.Warn("listener close failed", "err", err)
		}
	}

	close(s.done)
	s.logger.Info("chat server stopped accepting connections")
}
