package gcs

import (
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Option is a functor to pass optional parameters to the gcs store
type Option func(*gcs)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(g *gcs) {
		if logger != nil {
			g.l = logger
		}
	}
}

// Credentials specifies a credentials file. When empty, application default credentials are used.
func Credentials(file string) Option {
	return func(g *gcs) {
		if file != "" {
			g.clientOpts = append(g.clientOpts, option.WithCredentialsFile(file))
		}
	}
}

// Endpoint overrides the GCS API endpoint, e.g. to use a local emulator.
//
// Using an endpoint disables authentication.
func Endpoint(endpoint string) Option {
	return func(g *gcs) {
		if endpoint != "" {
			g.clientOpts = append(g.clientOpts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
		}
	}
}

// ClientOptions passes extra options to the underlying google API client
func ClientOptions(opts ...option.ClientOption) Option {
	return func(g *gcs) {
		g.clientOpts = append(g.clientOpts, opts...)
	}
}
