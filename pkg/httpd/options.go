package httpd

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultShutdownTimeout is the grace period given to in-flight requests on shutdown
	DefaultShutdownTimeout = 15 * time.Second
	// DefaultMaxHeaderBytes bounds the size of request headers
	DefaultMaxHeaderBytes = 1 << 20
)

// Option for the server
type Option func(*Server)

// Host sets the interface to listen on
func Host(host string) Option {
	return func(s *Server) {
		s.host = host
	}
}

// Port sets the port to listen on. 0 picks a random port.
func Port(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// ListenLimit limits the number of simultaneous connections. 0 means no limit.
func ListenLimit(n int) Option {
	return func(s *Server) {
		s.listenLimit = n
	}
}

// ShutdownTimeout is the grace period given to in-flight requests on shutdown
func ShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Timeouts sets the read and write timeouts of requests. 0 means no timeout.
func Timeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// MaxHeaderBytes bounds the size of request headers
func MaxHeaderBytes(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxHeaderBytes = n
		}
	}
}

// HandlesRequestsWith handles the http requests to the server
func HandlesRequestsWith(h http.Handler) Option {
	return func(s *Server) {
		s.handler = h
	}
}

// LogsWith provides a logger to the server
func LogsWith(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.l = l
		}
	}
}

// OnShutdown runs the provided functions once the listeners are shut down
func OnShutdown(handlers ...func()) Option {
	return func(s *Server) {
		s.onShutdown = append(s.onShutdown, handlers...)
	}
}
