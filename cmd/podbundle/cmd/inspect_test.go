package cmd

import (
	"context"
	"testing"

	"github.com/oneconcern/podbundle/pkg/core"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/wal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// populate runs a build server over a local directory
func populate(t *testing.T, dir string) model.Bundle {
	ctx := context.Background()
	store, err := newStore(ctx, Settings{Sink: sinkFS, FSPath: dir}, zap.NewNop())
	require.NoError(t, err)

	svc, err := core.New(core.Store(store), core.Mode(model.Production), core.PersistState(true), core.Workers(1))
	require.NoError(t, err)
	defer svc.Close()

	feed, err := svc.PublishAssets(ctx, "header", model.JS, []model.SourceFile{{Source: "console.log('header');", Entry: true}})
	require.NoError(t, err)
	_, err = svc.PublishInstruction(ctx, "home", model.JS, []string{"header", "footer"})
	require.NoError(t, err)

	bundle, err := svc.CreateBundle(ctx, model.JS, []string{feed.ID})
	require.NoError(t, err)
	return bundle
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	bundle := populate(t, dir)
	sink := []string{"--sink", sinkFS, "--fs-path", dir, "--log-level", "none"}

	out := execute(t, append([]string{"inspect", "tags", "--format", "table"}, sink...)...)
	assert.Contains(t, out, "TAG")
	assert.Contains(t, out, "header")

	out = execute(t, append([]string{"inspect", "instructions", "--format", "yaml"}, sink...)...)
	assert.Contains(t, out, "layout: home")
	assert.Contains(t, out, "- footer")

	out = execute(t, append([]string{"inspect", "bundles", "--format", "json", "--mode", "production"}, sink...)...)
	var bundles []model.Bundle
	require.NoError(t, model.JSON.Unmarshal([]byte(out), &bundles))
	require.Len(t, bundles, 1)
	assert.Equal(t, bundle.Identity, bundles[0].Identity)

	out = execute(t, append([]string{"inspect", "bundles", "--format", "json", "--mode", "development"}, sink...)...)
	assert.JSONEq(t, `[]`, out, "bundles are namespaced by mode")

	out = execute(t, append([]string{"inspect", "history", "--format", "json", "--max", "10"}, sink...)...)
	var history historyList
	require.NoError(t, model.JSON.Unmarshal([]byte(out), &history))
	require.Len(t, history.Entries, 2)
	assert.Equal(t, wal.KindFeed, history.Entries[0].Kind)
	assert.Equal(t, wal.KindInstruction, history.Entries[1].Kind)
}

func TestRenderUnknownFormat(t *testing.T) {
	assert.Error(t, renderTo(nil, "xml", tagList{}))
}
