package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dop251/goja"
	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/join"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingStore counts the writes of bundle descriptors
type countingStore struct {
	storage.Store
	bundles int32
}

func (c *countingStore) Put(ctx context.Context, key string, rdr io.Reader, exclusive bool) error {
	if strings.HasPrefix(key, "bundles/") {
		atomic.AddInt32(&c.bundles, 1)
	}
	return c.Store.Put(ctx, key, rdr, exclusive)
}

func newStore() *countingStore {
	return &countingStore{Store: localfs.New(afero.NewMemMapFs())}
}

func setupService(t testing.TB, store storage.Store, opts ...Option) *Service {
	s, err := New(append([]Option{Store(store), Workers(4), Logger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func entry(source string) []model.SourceFile {
	return []model.SourceFile{{File: "index.js", Source: source, Entry: true}}
}

func publish(t testing.TB, s *Service, tag, source string) model.Feed {
	feed, err := s.PublishAssets(context.Background(), tag, model.JS, entry(source))
	require.NoError(t, err)
	return feed
}

func instruct(t testing.TB, s *Service, layout string, tags ...string) join.Status {
	st, err := s.PublishInstruction(context.Background(), layout, model.JS, tags)
	require.NoError(t, err)
	return st
}

func fetch(t testing.TB, s *Service, identity string) []byte {
	bundle, content, err := s.FetchBundle(context.Background(), model.BundleFile(identity, model.JS))
	require.NoError(t, err)
	assert.Equal(t, identity, bundle.Identity)
	return content
}

func execute(t testing.TB, code []byte) []string {
	var calls []string
	vm := goja.New()
	require.NoError(t, vm.Set("spy", func(name string) { calls = append(calls, name) }))
	_, err := vm.RunString(string(code))
	require.NoError(t, err)
	return calls
}

func TestOptimisticBundling(t *testing.T) {
	s := setupService(t, newStore())

	a := publish(t, s, "a", `spy("a");`)
	st := instruct(t, s, "home", "a", "b")
	assert.Equal(t, join.Pending, st.State)
	assert.Equal(t, []string{"b"}, st.Missing)

	b := publish(t, s, "b", `spy("b");`)
	identity, ok := s.CurrentBundle("home", model.JS)
	require.True(t, ok)
	assert.Equal(t, model.Identity([]string{a.ID, b.ID}), identity)

	st, err := s.InstructionStatus("home", model.JS)
	require.NoError(t, err)
	assert.Equal(t, join.Satisfied, st.State)
	assert.Equal(t, model.BundleFile(identity, model.JS), st.File)

	assert.Equal(t, []string{"a", "b"}, execute(t, fetch(t, s, identity)))

	_, err = s.InstructionStatus("nope", model.JS)
	assert.True(t, errors.Is(err, status.ErrNotFound))
}

func TestJoinOrderIndependence(t *testing.T) {
	first := setupService(t, newStore())
	publish(t, first, "a", `spy("a");`)
	publish(t, first, "b", `spy("b");`)
	instruct(t, first, "home", "a", "b")

	second := setupService(t, newStore())
	instruct(t, second, "home", "a", "b")
	publish(t, second, "a", `spy("a");`)
	publish(t, second, "b", `spy("b");`)

	one, ok := first.CurrentBundle("home", model.JS)
	require.True(t, ok)
	two, ok := second.CurrentBundle("home", model.JS)
	require.True(t, ok)
	assert.Equal(t, one, two)
	assert.Equal(t, fetch(t, first, one), fetch(t, second, two))
}

func TestChangePropagationKeepsOldBundles(t *testing.T) {
	s := setupService(t, newStore())
	publish(t, s, "a", `spy("a1");`)
	publish(t, s, "b", `spy("b");`)
	publish(t, s, "c", `spy("c");`)
	instruct(t, s, "home", "a", "b")
	before, _ := s.CurrentBundle("home", model.JS)
	original := fetch(t, s, before)

	publish(t, s, "a", `spy("a2");`)
	after, _ := s.CurrentBundle("home", model.JS)
	require.NotEqual(t, before, after)
	assert.Equal(t, []string{"a2", "b"}, execute(t, fetch(t, s, after)))
	assert.Equal(t, original, fetch(t, s, before), "superseded bundles remain fetchable")

	// adding then removing a tag reverts to the previous identity, byte for byte
	instruct(t, s, "home", "a", "b", "c")
	extended, _ := s.CurrentBundle("home", model.JS)
	assert.Equal(t, []string{"a2", "b", "c"}, execute(t, fetch(t, s, extended)))

	instruct(t, s, "home", "a", "b")
	reverted, _ := s.CurrentBundle("home", model.JS)
	assert.Equal(t, after, reverted)
	assert.Equal(t, fetch(t, s, after), fetch(t, s, reverted))

	// reordering changes both the identity and the execution order
	instruct(t, s, "home", "b", "a")
	reordered, _ := s.CurrentBundle("home", model.JS)
	assert.NotEqual(t, after, reordered)
	assert.Equal(t, []string{"b", "a2"}, execute(t, fetch(t, s, reordered)))
}

func TestConcurrentBuildsOfTheSameIdentity(t *testing.T) {
	store := newStore()
	s := setupService(t, store)

	refs := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		feed, err := s.UploadFeed(context.Background(), "", model.JS, entry(fmt.Sprintf(`spy("%d");`, i)))
		require.NoError(t, err)
		refs = append(refs, model.FeedFile(feed.ID))
	}

	const callers = 20
	bundles := make([]model.Bundle, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			b, err := s.CreateBundle(context.Background(), model.JS, refs)
			assert.NoError(t, err)
			bundles[i] = b
		}(i)
	}
	wg.Wait()

	for _, b := range bundles {
		assert.Equal(t, bundles[0].Identity, b.Identity)
		assert.Equal(t, bundles[0].Hash, b.Hash)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.bundles), "a single build ran")
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, execute(t, fetch(t, s, bundles[0].Identity)))
}

func TestFetchUnknownBundle(t *testing.T) {
	s := setupService(t, newStore())
	feed, err := s.UploadFeed(context.Background(), "a", model.JS, entry(`spy("a");`))
	require.NoError(t, err)

	// the identity of an existing feed list that was never requested nor joined
	unknown := model.Identity([]string{feed.ID})
	_, _, err = s.FetchBundle(context.Background(), model.BundleFile(unknown, model.JS))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, _, err = s.FetchBundle(context.Background(), "not-a-bundle.js")
	assert.True(t, errors.Is(err, status.ErrValidation))
}

func TestFailedBuildIsNotPersisted(t *testing.T) {
	store := newStore()
	s := setupService(t, store)

	broken, err := s.UploadFeed(context.Background(), "broken", model.JS, entry(`function (`))
	require.NoError(t, err)
	ok, err := s.UploadFeed(context.Background(), "ok", model.JS, entry(`spy("ok");`))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = s.CreateBundle(context.Background(), model.JS, []string{broken.ID})
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrTransform))
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&store.bundles))

	_, _, err = s.FetchBundle(context.Background(), model.BundleFile(model.Identity([]string{broken.ID}), model.JS))
	assert.True(t, errors.Is(err, status.ErrTransform), "a known identity retries its build")

	bundle, err := s.CreateBundle(context.Background(), model.JS, []string{ok.ID})
	require.NoError(t, err, "other identities are not affected")
	assert.Equal(t, model.Identity([]string{ok.ID}), bundle.Identity)
}

func TestBundlesAreNamespacedByMode(t *testing.T) {
	store := newStore()
	dev := setupService(t, store, Mode(model.Development))

	feed, err := dev.UploadFeed(context.Background(), "a", model.JS, entry(`if (process.env.NODE_ENV === "production") { spy("prod"); } else { spy("dev"); }`))
	require.NoError(t, err)
	built, err := dev.CreateBundle(context.Background(), model.JS, []string{feed.ID})
	require.NoError(t, err)
	assert.Equal(t, model.Development, built.Mode)
	assert.Equal(t, []string{"dev"}, execute(t, fetch(t, dev, built.Identity)))

	prod := setupService(t, store, Mode("production"))
	assert.Equal(t, model.Production, prod.Mode())
	bundle, content, err := prod.FetchBundle(context.Background(), built.File())
	require.NoError(t, err)
	assert.Equal(t, model.Production, bundle.Mode)
	assert.Equal(t, []string{"prod"}, execute(t, content))
	assert.NotContains(t, string(content), `"dev"`)
}

func TestFeeds(t *testing.T) {
	s := setupService(t, newStore())
	ctx := context.Background()

	feed, err := s.UploadFeed(ctx, "", model.CSS, []model.SourceFile{{File: "a.css", Source: "a { color: red; }"}})
	require.NoError(t, err)
	again, err := s.UploadFeed(ctx, "", model.CSS, []model.SourceFile{{File: "a.css", Source: "a { color: red; }"}})
	require.NoError(t, err)
	assert.Equal(t, feed.ID, again.ID)

	data, err := s.FetchFeed(ctx, model.FeedFile(feed.ID))
	require.NoError(t, err)
	var stored model.Feed
	require.NoError(t, model.JSON.Unmarshal(data, &stored))
	assert.Equal(t, feed.ID, stored.ID)
	assert.Equal(t, "a { color: red; }", stored.Files[0].Source)

	_, err = s.FetchFeed(ctx, model.Hash([]byte("missing")))
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, err = s.FetchFeed(ctx, "../../etc/passwd")
	assert.True(t, errors.Is(err, status.ErrValidation))

	// publishing needs a tag, and is rejected before touching the registry
	_, err = s.PublishAssets(ctx, " ", model.CSS, []model.SourceFile{{Source: "b {}"}})
	assert.True(t, errors.Is(err, status.ErrValidation))

	require.NoError(t, s.PublishFeed(ctx, "styles", model.CSS, feed.ID))
	current, ok := s.CurrentFeed("styles", model.CSS)
	require.True(t, ok)
	assert.Equal(t, feed.ID, current)

	err = s.PublishFeed(ctx, "styles", model.JS, feed.ID)
	assert.True(t, errors.Is(err, status.ErrValidation), "type mismatch")

	err = s.PublishFeed(ctx, "styles", model.CSS, model.Hash([]byte("missing")))
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, err = s.CreateBundle(ctx, model.JS, []string{feed.ID})
	assert.True(t, errors.Is(err, status.ErrValidation), "css feed in a js bundle")
}

func TestRestoreState(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	first := setupService(t, store, PersistState(true))
	publish(t, first, "a", `spy("a");`)
	instruct(t, first, "home", "a")
	identity, ok := first.CurrentBundle("home", model.JS)
	require.True(t, ok)
	content := fetch(t, first, identity)
	first.Close()

	restarted := setupService(t, store, PersistState(true))
	require.NoError(t, restarted.Restore(ctx))
	restored, ok := restarted.CurrentBundle("home", model.JS)
	require.True(t, ok)
	assert.Equal(t, identity, restored)
	assert.Equal(t, content, fetch(t, restarted, restored))

	forgetful := setupService(t, store)
	require.NoError(t, forgetful.Restore(ctx))
	_, ok = forgetful.CurrentBundle("home", model.JS)
	assert.False(t, ok)
}

func TestEmptyInstruction(t *testing.T) {
	s := setupService(t, newStore())
	st := instruct(t, s, "blank")
	assert.Equal(t, join.Satisfied, st.State)
	assert.Empty(t, execute(t, fetch(t, s, st.Identity)))
}

// failingStore fails every operation
type failingStore struct {
	storage.Store
}

func (failingStore) Has(context.Context, string) (bool, error) {
	return false, errors.New("sink unavailable")
}

func (failingStore) Put(context.Context, string, io.Reader, bool) error {
	return errors.New("sink unavailable")
}

func (failingStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("sink unavailable")
}

func TestStorageErrors(t *testing.T) {
	s := setupService(t, failingStore{Store: localfs.New(afero.NewMemMapFs())})

	_, err := s.PublishAssets(context.Background(), "a", model.JS, entry(`spy("a");`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrStorage))
	_, ok := s.CurrentFeed("a", model.JS)
	assert.False(t, ok)

	_, err = s.FetchFeed(context.Background(), model.Hash([]byte("x")))
	assert.True(t, errors.Is(err, status.ErrStorage))
}

func TestUpperCaseAssetType(t *testing.T) {
	s := setupService(t, newStore())
	ctx := context.Background()

	st, err := s.PublishInstruction(ctx, "layout", model.AssetType("JS"), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, join.Pending, st.State)
	assert.Equal(t, model.JS, st.Type)

	feed, err := s.PublishAssets(ctx, "a", model.AssetType("Js"), entry(`spy("a");`))
	require.NoError(t, err)
	assert.Equal(t, model.JS, feed.Type)

	st, err = s.InstructionStatus("layout", model.AssetType("JS"))
	require.NoError(t, err)
	assert.Equal(t, join.Satisfied, st.State)
	assert.Equal(t, []string{"a"}, execute(t, fetch(t, s, st.Identity)))
}
