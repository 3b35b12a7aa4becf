package join

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mx        sync.Mutex
	manifests []model.Manifest
	fail      error
}

func (r *recorder) trigger(_ context.Context, m model.Manifest) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.manifests = append(r.manifests, m)
	return nil
}

func (r *recorder) identities() []string {
	r.mx.Lock()
	defer r.mx.Unlock()
	ids := make([]string, 0, len(r.manifests))
	for _, m := range r.manifests {
		ids = append(ids, m.Identity)
	}
	return ids
}

type fixture struct {
	feeds        *registry.Feeds
	instructions *registry.Instructions
	engine       *Engine
	rec          *recorder
}

func setup(t testing.TB) *fixture {
	f := &fixture{
		feeds:        registry.NewFeeds(),
		instructions: registry.NewInstructions(),
		rec:          &recorder{},
	}
	f.engine = New(f.feeds, f.instructions, f.rec.trigger, Logger(zaptest.NewLogger(t)))
	return f
}

func feedID(s string) string {
	return model.Hash([]byte(s))
}

func (f *fixture) publishFeed(t testing.TB, tag, content string) {
	require.NoError(t, f.feeds.PublishFeed(context.Background(), tag, model.JS, feedID(content)))
}

func (f *fixture) publishInstruction(t testing.TB, layout string, tags ...string) {
	_, err := f.instructions.PublishInstruction(context.Background(), layout, model.JS, tags)
	require.NoError(t, err)
}

func (f *fixture) current(t testing.TB, layout string) string {
	identity, ok := f.engine.Current(layout, model.JS)
	require.True(t, ok)
	return identity
}

func TestJoin_OrderIndependence(t *testing.T) {
	expected := model.Identity([]string{feedID("A"), feedID("B")})

	feedsFirst := setup(t)
	feedsFirst.publishFeed(t, "a", "A")
	feedsFirst.publishFeed(t, "b", "B")
	feedsFirst.publishInstruction(t, "home", "a", "b")
	assert.Equal(t, expected, feedsFirst.current(t, "home"))
	assert.Equal(t, []string{expected}, feedsFirst.rec.identities())

	instructionFirst := setup(t)
	instructionFirst.publishInstruction(t, "home", "a", "b")
	assert.Empty(t, instructionFirst.rec.identities())

	instructionFirst.publishFeed(t, "a", "A")
	st := instructionFirst.engine.Status("home", model.JS)
	assert.Equal(t, Pending, st.State)
	assert.Equal(t, []string{"b"}, st.Missing)

	instructionFirst.publishFeed(t, "b", "B")
	assert.Equal(t, expected, instructionFirst.current(t, "home"))
	assert.Equal(t, []string{expected}, instructionFirst.rec.identities())

	st = instructionFirst.engine.Status("home", model.JS)
	assert.Equal(t, Satisfied, st.State)
	assert.Equal(t, model.BundleFile(expected, model.JS), st.File)
}

func TestJoin_OrderSensitivity(t *testing.T) {
	f := setup(t)
	f.publishFeed(t, "a", "A")
	f.publishFeed(t, "b", "B")
	f.publishInstruction(t, "ab", "a", "b")
	f.publishInstruction(t, "ba", "b", "a")

	assert.NotEqual(t, f.current(t, "ab"), f.current(t, "ba"))
	require.Len(t, f.rec.manifests, 2)
	assert.Equal(t, []string{feedID("A"), feedID("B")}, f.rec.manifests[0].Feeds)
	assert.Equal(t, []string{feedID("B"), feedID("A")}, f.rec.manifests[1].Feeds)
}

func TestJoin_ChangePropagation(t *testing.T) {
	f := setup(t)
	f.publishFeed(t, "a", "A")
	f.publishFeed(t, "b", "B")
	f.publishInstruction(t, "home", "a", "b")
	f.publishInstruction(t, "other", "b")
	before := f.current(t, "home")
	other := f.current(t, "other")

	f.publishFeed(t, "a", "A2")
	after := f.current(t, "home")
	assert.NotEqual(t, before, after)
	assert.Equal(t, model.Identity([]string{feedID("A2"), feedID("B")}), after)
	assert.Equal(t, other, f.current(t, "other"), "layouts without the tag are not affected")
	assert.Equal(t, []string{before, other, after}, f.rec.identities())

	// publishing the same feed again does not trigger
	f.publishFeed(t, "a", "A2")
	assert.Len(t, f.rec.identities(), 3)
}

func TestJoin_AddRemoveTag(t *testing.T) {
	f := setup(t)
	f.publishFeed(t, "a", "A")
	f.publishFeed(t, "b", "B")
	f.publishFeed(t, "c", "C")

	f.publishInstruction(t, "home", "a", "b")
	original := f.current(t, "home")

	f.publishInstruction(t, "home", "a", "b", "c")
	extended := f.current(t, "home")
	assert.NotEqual(t, original, extended)

	f.publishInstruction(t, "home", "a", "b")
	assert.Equal(t, original, f.current(t, "home"))
	assert.Equal(t, []string{original, extended, original}, f.rec.identities())

	// "c" is no longer of interest for the layout
	f.publishFeed(t, "c", "C2")
	assert.Len(t, f.rec.identities(), 3)
}

func TestJoin_EmptyAndRepublishedInstructions(t *testing.T) {
	f := setup(t)
	f.publishInstruction(t, "empty")
	assert.Equal(t, model.Identity(nil), f.current(t, "empty"))
	assert.Equal(t, Satisfied, f.engine.Status("empty", model.JS).State)

	f.publishFeed(t, "a", "A")
	f.publishInstruction(t, "home", "a")
	f.publishInstruction(t, "home", "a")
	f.publishInstruction(t, "home", "a")
	assert.Len(t, f.rec.identities(), 2)

	assert.Equal(t, Unknown, f.engine.Status("nope", model.JS).State)
	_, ok := f.engine.Current("nope", model.JS)
	assert.False(t, ok)
	_, ok = f.engine.Current("home", model.CSS)
	assert.False(t, ok)
}

func TestJoin_TriggerFailureIsRetried(t *testing.T) {
	f := setup(t)
	f.publishFeed(t, "a", "A")

	f.rec.fail = errors.New("storage down")
	_, err := f.instructions.PublishInstruction(context.Background(), "home", model.JS, []string{"a"})
	require.Error(t, err)
	_, ok := f.engine.Current("home", model.JS)
	assert.False(t, ok)

	f.rec.fail = nil
	f.publishInstruction(t, "home", "a")
	assert.Equal(t, model.Identity([]string{feedID("A")}), f.current(t, "home"))
}

func TestJoin_Resync(t *testing.T) {
	feeds := registry.NewFeeds()
	instructions := registry.NewInstructions()
	ctx := context.Background()
	require.NoError(t, feeds.PublishFeed(ctx, "a", model.CSS, feedID("A")))
	_, err := instructions.PublishInstruction(ctx, "home", model.CSS, []string{"a"})
	require.NoError(t, err)

	rec := &recorder{}
	engine := New(feeds, instructions, rec.trigger)
	require.NoError(t, engine.Resync(ctx))

	identity, ok := engine.Current("home", model.CSS)
	require.True(t, ok)
	assert.Equal(t, model.Identity([]string{feedID("A")}), identity)
	assert.Len(t, rec.identities(), 1)
}

func TestJoin_ConcurrentPublishesConverge(t *testing.T) {
	const tags = 10
	names := make([]string, tags)
	for i := range names {
		names[i] = fmt.Sprintf("podlet-%d", i)
	}

	for round := 0; round < 5; round++ {
		f := setup(t)
		var wg sync.WaitGroup
		wg.Add(tags + 1)
		go func() {
			defer wg.Done()
			f.publishInstruction(t, "home", names...)
		}()
		for _, toPin := range names {
			tag := toPin
			go func() {
				defer wg.Done()
				f.publishFeed(t, tag, tag)
			}()
		}
		wg.Wait()

		ids := make([]string, tags)
		for i, tag := range names {
			ids[i] = feedID(tag)
		}
		expected := model.Identity(ids)
		assert.Equal(t, expected, f.current(t, "home"))
		assert.Equal(t, []string{expected}, f.rec.identities(), "only the complete join triggers")
	}
}

func TestJoin_SlowTriggerDoesNotBlockOtherPublishes(t *testing.T) {
	feeds := registry.NewFeeds()
	instructions := registry.NewInstructions()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := func(_ context.Context, m model.Manifest) error {
		if len(m.Feeds) == 1 && m.Feeds[0] == feedID("A") {
			close(entered)
			<-release
		}
		return nil
	}
	engine := New(feeds, instructions, slow, Logger(zaptest.NewLogger(t)))
	require.NoError(t, feeds.PublishFeed(ctx, "a", model.JS, feedID("A")))

	published := make(chan error, 1)
	go func() {
		_, err := instructions.PublishInstruction(ctx, "home", model.JS, []string{"a"})
		published <- err
	}()
	<-entered

	done := make(chan error, 1)
	go func() {
		if err := feeds.PublishFeed(ctx, "unrelated", model.JS, feedID("U")); err != nil {
			done <- err
			return
		}
		_, err := instructions.PublishInstruction(ctx, "other", model.JS, []string{"unrelated"})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(release)
		<-published
		t.Fatal("publishing to another tag waited for a trigger in flight")
	}

	identity, ok := engine.Current("other", model.JS)
	require.True(t, ok)
	assert.Equal(t, model.Identity([]string{feedID("U")}), identity)
	assert.Equal(t, model.Identity([]string{feedID("A")}), engine.Status("home", model.JS).Identity)

	close(release)
	require.NoError(t, <-published)
}

func TestJoin_StaleFailureKeepsNewerIdentity(t *testing.T) {
	feeds := registry.NewFeeds()
	instructions := registry.NewInstructions()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	flaky := func(_ context.Context, m model.Manifest) error {
		if len(m.Feeds) == 1 && m.Feeds[0] == feedID("A") {
			close(entered)
			<-release
			return errors.New("storage down")
		}
		return nil
	}
	engine := New(feeds, instructions, flaky, Logger(zaptest.NewLogger(t)))
	require.NoError(t, feeds.PublishFeed(ctx, "a", model.JS, feedID("A")))

	failed := make(chan error, 1)
	go func() {
		_, err := instructions.PublishInstruction(ctx, "home", model.JS, []string{"a"})
		failed <- err
	}()
	<-entered

	require.NoError(t, feeds.PublishFeed(ctx, "a", model.JS, feedID("A2")))
	close(release)
	require.Error(t, <-failed)

	identity, ok := engine.Current("home", model.JS)
	require.True(t, ok)
	assert.Equal(t, model.Identity([]string{feedID("A2")}), identity)
}

func TestJoin_UnknownTypeIsIgnored(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.engine.onFeed(context.Background(), registry.FeedEvent{Tag: "a", Type: model.AssetType("html")}))
	require.NoError(t, f.engine.onInstruction(context.Background(), registry.InstructionEvent{
		Instruction: model.Instruction{Layout: "home", Type: model.AssetType("html")},
	}))
	assert.Empty(t, f.rec.identities())
}
