// Copyright © 2018 One Concern

package cmd

import (
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/oneconcern/podbundle/pkg/cafs"
	"github.com/oneconcern/podbundle/pkg/dispatch"
	"github.com/oneconcern/podbundle/pkg/dlogger"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/httpd"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/web"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	sinkFS  = "fs"
	sinkMem = "mem"
	sinkGCS = "gcs"
	sinkS3  = "s3"
)

// Settings of the build server. Every field is bound to a flag, an env var and a config file key.
type Settings struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ListenLimit     int           `mapstructure:"listen-limit" yaml:"listen-limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" yaml:"shutdown-timeout"`
	MaxUploadSize   string        `mapstructure:"max-upload-size" yaml:"max-upload-size"`

	Mode         string `mapstructure:"mode" yaml:"mode,omitempty"`
	Workers      int    `mapstructure:"workers" yaml:"workers"`
	CacheSize    int    `mapstructure:"cache-size" yaml:"cache-size"`
	PersistState bool   `mapstructure:"persist-state" yaml:"persist-state"`

	Sink       string `mapstructure:"sink" yaml:"sink"`
	FSPath     string `mapstructure:"fs-path" yaml:"fs-path,omitempty"`
	Bucket     string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Credential string `mapstructure:"credential" yaml:"credential,omitempty"`
	S3Region   string `mapstructure:"s3-region" yaml:"s3-region,omitempty"`
	S3Endpoint string `mapstructure:"s3-endpoint" yaml:"s3-endpoint,omitempty"`

	LogLevel string `mapstructure:"log-level" yaml:"log-level"`
	Tracing  bool   `mapstructure:"tracing" yaml:"tracing"`
	History  bool   `mapstructure:"history" yaml:"history"`
}

func addServerFlags(fs *flag.FlagSet) {
	fs.String("host", "localhost", "the IP to listen on")
	fs.Int("port", 4001, "the port to listen on, 0 picks a random port")
	fs.Int("listen-limit", 0, "limit the number of simultaneous connections")
	fs.Duration("shutdown-timeout", httpd.DefaultShutdownTimeout, "grace period given to in-flight requests on shutdown")
	fs.String("max-upload-size", units.BytesSize(float64(web.DefaultMaxUploadSize)), "maximum size of an upload, e.g. 32MiB")
}

func addBuildFlags(fs *flag.FlagSet) {
	fs.String("mode", "", "build mode: development or production. Defaults to NODE_ENV")
	fs.Int("workers", dispatch.DefaultWorkers, "number of concurrent bundle builds")
	fs.Int("cache-size", cafs.DefaultCacheSize, "number of blobs kept in the read cache")
	fs.Bool("persist-state", false, "persist the latest feeds and instructions, and restore them at startup")
	fs.Bool("history", true, "record every publish in the publish history")
}

func addSinkFlags(fs *flag.FlagSet) {
	fs.String("sink", sinkFS, "storage sink: fs, mem, gcs or s3")
	fs.String("fs-path", "./data", "root directory of the fs sink")
	fs.String("bucket", "", "bucket of the gcs or s3 sink, optionally followed by a prefix: bucket/prefix")
	fs.String("credential", "", "credentials file for the gcs sink. Defaults to application default credentials")
	fs.String("s3-region", "", "region of the s3 sink")
	fs.String("s3-endpoint", "", "endpoint of an s3 compatible service")
}

func addLogFlags(fs *flag.FlagSet) {
	fs.String("log-level", dlogger.LogLevelInfo, "log level: debug, info, warn, error or none")
	fs.Bool("tracing", false, "trace storage operations with jaeger, configured by the JAEGER_* environment")
}

// bindFlags makes flags the highest priority source of the settings of a command
func bindFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

func loadSettings() (Settings, error) {
	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return settings, errors.New("invalid configuration").Wrap(err)
	}
	if settings.Mode == "" {
		settings.Mode = os.Getenv("NODE_ENV")
	}
	settings.Mode = model.ParseMode(settings.Mode).String()
	return settings, nil
}

func (s Settings) maxUploadSize() (int64, error) {
	if s.MaxUploadSize == "" {
		return web.DefaultMaxUploadSize, nil
	}
	size, err := units.RAMInBytes(s.MaxUploadSize)
	if err != nil {
		return 0, errors.New("invalid max-upload-size").Wrap(err)
	}
	return size, nil
}
