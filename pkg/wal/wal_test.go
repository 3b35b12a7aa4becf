package wal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t testing.TB, entries int) (*WAL, []Entry) {
	w := New(localfs.New(afero.NewMemMapFs()), Logger(zaptest.NewLogger(t)), MaxConcurrency(4))
	added := make([]Entry, 0, entries)
	for i := 0; i < entries; i++ {
		e, err := w.Add(context.Background(), Entry{Kind: KindFeed, Type: model.JS, Tag: fmt.Sprintf("tag-%d", i), Feed: model.Hash([]byte{byte(i)})})
		require.NoError(t, err)
		added = append(added, e)
	}
	return w, added
}

func TestAddAndList(t *testing.T) {
	w, added := setup(t, 25)

	entries, next, err := w.ListEntries(context.Background(), "", 100)
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, entries, len(added))
	for i, e := range entries {
		assert.Equal(t, added[i].Token, e.Token)
		assert.Equal(t, fmt.Sprintf("tag-%d", i), e.Tag)
		assert.Equal(t, KindFeed, e.Kind)
		assert.False(t, e.At.IsZero())
	}
}

func TestPagination(t *testing.T) {
	w, added := setup(t, 10)
	ctx := context.Background()

	var (
		tokens []string
		from   string
		pages  int
	)
	for {
		page, next, err := w.ListTokens(ctx, from, 3)
		require.NoError(t, err)
		tokens = append(tokens, page...)
		pages++
		if next == "" {
			break
		}
		assert.Equal(t, page[len(page)-1], next)
		from = next
	}
	assert.Equal(t, 4, pages)
	require.Len(t, tokens, len(added))
	for i := range added {
		assert.Equal(t, added[i].Token, tokens[i])
	}

	// the start token is excluded
	page, _, err := w.ListTokens(ctx, added[7].Token, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{added[8].Token, added[9].Token}, page)
}

func TestListErrors(t *testing.T) {
	w, _ := setup(t, 1)
	ctx := context.Background()

	_, _, err := w.ListTokens(ctx, "", 0)
	assert.True(t, errors.Is(err, status.ErrValidation))

	_, _, err = w.ListEntries(ctx, "not-a-token", 10)
	assert.True(t, errors.Is(err, status.ErrValidation))
}

func TestIgnoresForeignKeys(t *testing.T) {
	w, added := setup(t, 2)
	require.NoError(t, storage.PutBytes(context.Background(), w.store, model.WALPrefix+"README", []byte("x"), storage.OverWrite))

	entries, _, err := w.ListEntries(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, entries, len(added))
}

func TestConcurrentAddsAreOrdered(t *testing.T) {
	w, _ := setup(t, 0)

	const n = 50
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := w.Add(context.Background(), Entry{Kind: KindInstruction, Type: model.CSS, Layout: "home", Tags: []string{"a"}})
			assert.NoError(t, err)
			tokens[i] = e.Token
		}(i)
	}
	wg.Wait()

	listed, next, err := w.ListTokens(context.Background(), "", n)
	require.NoError(t, err)
	assert.Empty(t, next)

	sort.Strings(tokens)
	assert.Equal(t, tokens, listed)
	assert.Len(t, listed, n, "tokens are unique")
}
