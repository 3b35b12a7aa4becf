// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/oneconcern/podbundle/pkg/core"
	"github.com/oneconcern/podbundle/pkg/dlogger"
	"github.com/oneconcern/podbundle/pkg/httpd"
	"github.com/oneconcern/podbundle/pkg/metrics"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the build server",
	Long: `Runs the build server until interrupted.

Settings are taken from flags, then PODBUNDLE_* environment variables, then the podbundle.yaml config file.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv, l, err := newServer(ctx, settings)
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		return srv.Serve(ctx)
	},
}

func init() {
	addServerFlags(serveCmd.Flags())
	addBuildFlags(serveCmd.Flags())
	addSinkFlags(serveCmd.Flags())
	addLogFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

// newServer wires the build server. The build pool is closed when the server shuts down.
func newServer(ctx context.Context, settings Settings) (*httpd.Server, *zap.Logger, error) {
	l, err := dlogger.GetLogger(settings.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	maxUpload, err := settings.maxUploadSize()
	if err != nil {
		return nil, nil, err
	}

	onShutdown := []func(){}
	if settings.Tracing {
		closer, err := newTracer(l)
		if err != nil {
			return nil, nil, err
		}
		onShutdown = append(onShutdown, func() { _ = closer.Close() })
	}

	store, err := newStore(ctx, settings, l)
	if err != nil {
		return nil, nil, err
	}

	mode := model.ParseMode(settings.Mode)
	svc, err := core.New(
		core.Store(store),
		core.Mode(mode),
		core.Workers(settings.Workers),
		core.CacheSize(settings.CacheSize),
		core.PersistState(settings.PersistState),
		core.History(settings.History),
		core.Logger(l),
	)
	if err != nil {
		return nil, nil, err
	}

	if settings.PersistState {
		if err := svc.Restore(ctx); err != nil {
			svc.Close()
			return nil, nil, err
		}
	}

	metrics.Init(metrics.Info{
		Version: Version,
		Mode:    mode.String(),
		Sink:    store.String(),
		Workers: settings.Workers,
	})

	handler := web.InitRouter(web.NewServer(svc, web.ServerParams{
		MaxUploadSize: maxUpload,
		Logger:        l,
	}))

	srv := httpd.New(
		httpd.Host(settings.Host),
		httpd.Port(settings.Port),
		httpd.ListenLimit(settings.ListenLimit),
		httpd.ShutdownTimeout(settings.ShutdownTimeout),
		httpd.HandlesRequestsWith(handler),
		httpd.LogsWith(l),
		httpd.OnShutdown(append([]func(){svc.Close}, onShutdown...)...),
	)
	l.Info("build server configured",
		zap.Stringer("mode", mode),
		zap.Int("workers", settings.Workers),
		zap.Bool("persist-state", settings.PersistState),
	)
	return srv, l, nil
}
