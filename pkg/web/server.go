package web

import (
	"context"

	"github.com/docker/go-units"
	"github.com/oneconcern/podbundle/pkg/join"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/wal"
	"go.uber.org/zap"
)

// DefaultMaxUploadSize bounds the size of a feed upload
const DefaultMaxUploadSize = 32 * units.MiB

// BuildServer is the set of build server operations exposed over HTTP
type BuildServer interface {
	UploadFeed(ctx context.Context, tag string, typ model.AssetType, files []model.SourceFile) (model.Feed, error)
	PublishAssets(ctx context.Context, tag string, typ model.AssetType, files []model.SourceFile) (model.Feed, error)
	FetchFeed(ctx context.Context, file string) ([]byte, error)
	CreateBundle(ctx context.Context, typ model.AssetType, feedRefs []string) (model.Bundle, error)
	FetchBundle(ctx context.Context, file string) (model.Bundle, []byte, error)
	PublishInstruction(ctx context.Context, layout string, typ model.AssetType, tags []string) (join.Status, error)
	InstructionStatus(layout string, typ model.AssetType) (join.Status, error)
	History(ctx context.Context, fromToken string, max int) ([]wal.Entry, string, error)
}

// ServerParams configures the HTTP binding
type ServerParams struct {
	MaxUploadSize int64
	Logger        *zap.Logger
}

// Server holds the HTTP handlers
type Server struct {
	backend BuildServer
	params  ServerParams
	l       *zap.Logger
}

// NewServer builds the HTTP handlers for a build server
func NewServer(backend BuildServer, params ServerParams) *Server {
	if params.MaxUploadSize <= 0 {
		params.MaxUploadSize = DefaultMaxUploadSize
	}
	l := params.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{backend: backend, params: params, l: l}
}
