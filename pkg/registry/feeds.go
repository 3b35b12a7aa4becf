package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	"go.uber.org/zap"
)

// FeedEvent notifies that a tag points to a new feed
type FeedEvent struct {
	Tag      string
	Type     model.AssetType
	FeedID   string
	Previous string
}

// FeedListener consumes feed events
type FeedListener func(context.Context, FeedEvent) error

// Feeds is the feed registry: it maps (tag, type) to the latest published feed id
type Feeds struct {
	*options
	values *table[string]

	listenersMx sync.RWMutex
	listeners   []FeedListener
}

// NewFeeds builds an empty feed registry
func NewFeeds(opts ...Option) *Feeds {
	o := defaultOptions()
	for _, apply := range opts {
		apply(o)
	}
	return &Feeds{
		options: o,
		values:  newTable[string](o.shards),
	}
}

func registryKey(typ model.AssetType, name string) string {
	return string(typ) + "\x00" + name
}

// Range iterates over the latest feed of every tag, until fn returns false
func (f *Feeds) Range(fn func(model.FeedPointer) bool) {
	f.values.rangeAll(func(key string, feedID string) bool {
		typ, tag, _ := strings.Cut(key, "\x00")
		return fn(model.FeedPointer{Tag: tag, Type: model.AssetType(typ), FeedID: feedID})
	})
}

// Subscribe registers a listener, called after each publish
func (f *Feeds) Subscribe(listener FeedListener) {
	f.listenersMx.Lock()
	defer f.listenersMx.Unlock()
	f.listeners = append(f.listeners, listener)
}

// PublishFeed sets the latest feed for a tag, then notifies listeners.
//
// The pointer is overwritten unconditionally. The returned error reports a failure
// to persist the pointer, or the first error returned by a listener.
func (f *Feeds) PublishFeed(ctx context.Context, tag string, typ model.AssetType, feedID string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return status.ErrValidation.WrapMessage("a tag is required to publish a feed")
	}
	typ, err := model.ParseAssetType(string(typ))
	if err != nil {
		return err
	}
	if !model.IsHash(feedID) {
		return status.ErrValidation.WrapMessage("invalid feed id %q", feedID)
	}

	var commit func() error
	if f.persist != nil {
		commit = func() error {
			return f.save(ctx, model.FeedPointer{Tag: tag, Type: typ, FeedID: feedID})
		}
	}

	previous, _, err := f.values.update(registryKey(typ, tag), feedID, commit)
	if err != nil {
		return err
	}
	publishCounter.WithLabelValues("feeds", string(typ)).Inc()
	f.l.Info("feed published", zap.String("tag", tag), zap.Stringer("type", typ), zap.String("feed", feedID))

	return f.notify(ctx, FeedEvent{Tag: tag, Type: typ, FeedID: feedID, Previous: previous})
}

func (f *Feeds) notify(ctx context.Context, event FeedEvent) error {
	f.listenersMx.RLock()
	listeners := f.listeners
	f.listenersMx.RUnlock()

	var first error
	for _, listener := range listeners {
		if err := listener(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CurrentFeed returns the latest feed id for a tag
func (f *Feeds) CurrentFeed(tag string, typ model.AssetType) (string, bool) {
	return f.values.get(registryKey(typ, tag))
}

// Resolve looks up the current feed of every tag, in order. It returns the tags without a feed.
func (f *Feeds) Resolve(tags []string, typ model.AssetType) (feedIDs []string, missing []string) {
	feedIDs = make([]string, 0, len(tags))
	for _, tag := range tags {
		id, ok := f.CurrentFeed(tag, typ)
		if !ok {
			missing = append(missing, tag)
			continue
		}
		feedIDs = append(feedIDs, id)
	}
	return feedIDs, missing
}

func (f *Feeds) save(ctx context.Context, pointer model.FeedPointer) error {
	data, err := model.JSON.Marshal(pointer)
	if err != nil {
		return status.ErrStorage.Wrap(err)
	}
	if err := storage.PutBytes(ctx, f.persist, model.GetArchivePathToTag(pointer.Type, pointer.Tag), data, storage.OverWrite); err != nil {
		return status.ErrStorage.WrapWithLog(f.l, err, zap.String("tag", pointer.Tag))
	}
	return nil
}

// Restore loads the persisted pointers, without notifying listeners
func (f *Feeds) Restore(ctx context.Context) error {
	if f.persist == nil {
		return nil
	}
	pointers, err := restoreAll[model.FeedPointer](ctx, f.persist, model.GetArchivePathPrefixToTags)
	if err != nil {
		return err
	}
	for _, pointer := range pointers {
		_, _, _ = f.values.update(registryKey(pointer.Type, pointer.Tag), pointer.FeedID, nil)
	}
	f.l.Info("feed registry restored", zap.Int("tags", len(pointers)))
	return nil
}
