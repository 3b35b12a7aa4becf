package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

func execute(t *testing.T, args ...string) string {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "podbundle "+Version)
}

func TestConfigShow(t *testing.T) {
	out := execute(t, "config", "show", "--sink", "mem", "--mode", "production", "--workers", "3", "--max-upload-size", "1MiB", "--shutdown-timeout", "3s")

	var settings Settings
	require.NoError(t, yaml.Unmarshal([]byte(out), &settings))
	assert.Equal(t, "mem", settings.Sink)
	assert.Equal(t, "production", settings.Mode)
	assert.Equal(t, 3, settings.Workers)
	assert.Equal(t, "1MiB", settings.MaxUploadSize)
	assert.Equal(t, 3*time.Second, settings.ShutdownTimeout)
	assert.Equal(t, "localhost", settings.Host)
}

func TestModeFallsBackToNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	out := execute(t, "config", "show", "--mode=")

	var settings Settings
	require.NoError(t, yaml.Unmarshal([]byte(out), &settings))
	assert.Equal(t, "production", settings.Mode)

	t.Setenv("NODE_ENV", "staging")
	out = execute(t, "config", "show", "--mode=")
	require.NoError(t, yaml.Unmarshal([]byte(out), &settings))
	assert.Equal(t, "development", settings.Mode, "an unknown mode falls back to development")
}

func TestConfigCreate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "conf", "podbundle.yaml")
	execute(t, "config", "create", "--output", target, "--sink", "gcs", "--bucket", "assets/podbundle")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var settings Settings
	require.NoError(t, yaml.Unmarshal(data, &settings))
	assert.Equal(t, "gcs", settings.Sink)
	assert.Equal(t, "assets/podbundle", settings.Bucket)
}

func TestMaxUploadSize(t *testing.T) {
	size, err := Settings{MaxUploadSize: "1KiB"}.maxUploadSize()
	require.NoError(t, err)
	assert.Equal(t, int64(1024), size)

	_, err = Settings{MaxUploadSize: "a lot"}.maxUploadSize()
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	l := zap.NewNop()

	store, err := newStore(ctx, Settings{Sink: sinkMem}, l)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.String())

	store, err = newStore(ctx, Settings{Sink: sinkFS, FSPath: t.TempDir()}, l)
	require.NoError(t, err)
	assert.Contains(t, store.String(), "localfs")

	for _, settings := range []Settings{
		{Sink: "ftp"},
		{Sink: sinkFS},
		{Sink: sinkGCS},
		{Sink: sinkS3},
	} {
		_, err = newStore(ctx, settings, l)
		assert.Errorf(t, err, "sink %q", settings.Sink)
	}
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, _, err := newServer(ctx, Settings{
		Host:            "127.0.0.1",
		Sink:            sinkMem,
		Mode:            "production",
		Workers:         2,
		ShutdownTimeout: time.Second,
		LogLevel:        "none",
	})
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `mode="production"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestProfileDir(t *testing.T) {
	dir := t.TempDir()
	execute(t, "version", "--profile-dir", dir)

	matches, err := filepath.Glob(filepath.Join(dir, "*.prof"))
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestNewTracer(t *testing.T) {
	t.Setenv("JAEGER_SERVICE_NAME", "")
	defer opentracing.SetGlobalTracer(opentracing.NoopTracer{})

	closer, err := newTracer(zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, closer.Close())
}
