package httpd

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-openapi/swag"
	"github.com/oneconcern/podbundle/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

// Server runs an HTTP handler until its context is done, then shuts down gracefully
type Server struct {
	host            string
	port            int
	listenLimit     int
	shutdownTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	maxHeaderBytes  int

	handler    http.Handler
	l          *zap.Logger
	onShutdown []func()

	mx       sync.Mutex
	listener net.Listener
}

// New creates a server but does not listen yet
func New(opts ...Option) *Server {
	s := &Server{
		host:            "localhost",
		shutdownTimeout: DefaultShutdownTimeout,
		maxHeaderBytes:  DefaultMaxHeaderBytes,
		handler:         http.NotFoundHandler(),
		l:               zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// Listen opens the listener. The actual host and port are resolved, so a random port can be discovered.
func (s *Server) Listen() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return errors.New("cannot listen").Wrap(err)
	}

	h, p, err := swag.SplitHostPort(listener.Addr().String())
	if err != nil {
		_ = listener.Close()
		return err
	}
	s.host = h
	s.port = p

	if s.listenLimit > 0 {
		listener = netutil.LimitListener(listener, s.listenLimit)
	}
	s.listener = listener
	return nil
}

// Addr returns the address the server listens on, once listening
func (s *Server) Addr() string {
	s.mx.Lock()
	defer s.mx.Unlock()
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Serve requests until the context is done. In-flight requests get a grace period to complete.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		IdleTimeout:    s.shutdownTimeout,
		ErrorLog:       zap.NewStdLog(s.l),
	}

	addr := s.Addr()
	served := make(chan error, 1)
	go func() {
		s.l.Info("serving", zap.String("address", "http://"+addr))
		served <- httpServer.Serve(s.listener)
	}()

	select {
	case err := <-served:
		if err != nil && err != http.ErrServerClosed {
			return errors.New("server failed").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	s.l.Info("shutting down", zap.String("address", addr), zap.Duration("grace", s.shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	<-served
	if err != nil {
		s.l.Warn("http server shutdown", zap.Error(err))
	}

	for _, run := range s.onShutdown {
		run()
	}
	s.l.Info("stopped serving", zap.String("address", addr))
	return err
}
