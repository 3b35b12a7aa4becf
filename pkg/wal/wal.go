package wal

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	storagestatus "github.com/oneconcern/podbundle/pkg/storage/status"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxEntriesPerList bounds the number of entries returned by a single list
	MaxEntriesPerList = 1000
	maxConcurrency    = 64
)

// WAL describes a write-ahead log
type WAL struct {
	store          storage.Store // append only store where entries are written to
	maxConcurrency int           // max concurrency when reading
	l              *zap.Logger

	mx   sync.Mutex
	last ksuid.KSUID
}

// Option of the write-ahead log
type Option func(w *WAL)

// MaxConcurrency bounds the number of entries read in parallel
func MaxConcurrency(c int) Option {
	return func(w *WAL) {
		if c > 0 {
			w.maxConcurrency = c
		}
	}
}

// Logger sets a logger for this WAL
func Logger(logger *zap.Logger) Option {
	return func(w *WAL) {
		if logger != nil {
			w.l = logger
		}
	}
}

// New builds a write-ahead log with entries stored on some sink
func New(store storage.Store, options ...Option) *WAL {
	w := &WAL{
		store:          store,
		maxConcurrency: maxConcurrency,
		l:              zap.NewNop(),
	}
	for _, apply := range options {
		apply(w)
	}
	return w
}

// token yields a new token. Tokens are strictly increasing within a process.
func (w *WAL) token(at time.Time) (ksuid.KSUID, error) {
	k, err := ksuid.NewRandomWithTime(at)
	if err != nil {
		return ksuid.Nil, err
	}

	w.mx.Lock()
	defer w.mx.Unlock()
	if ksuid.Compare(k, w.last) <= 0 {
		k = w.last.Next()
	}
	w.last = k
	return k, nil
}

// Add an entry to the log. The token and time of the entry are set by the log.
func (w *WAL) Add(ctx context.Context, e Entry) (Entry, error) {
	e.At = time.Now().UTC()
	k, err := w.token(e.At)
	if err != nil {
		return Entry{}, status.ErrStorage.Wrap(err)
	}
	e.Token = k.String()

	data, err := model.JSON.Marshal(e)
	if err != nil {
		return Entry{}, err
	}
	if err = storage.PutBytes(ctx, w.store, model.GetArchivePathToWALEntry(e.Token), data, storage.NoOverWrite); err != nil {
		return Entry{}, status.ErrStorage.WrapWithLog(w.l, err, zap.String("token", e.Token))
	}
	w.l.Debug("write wal entry", zap.String("token", e.Token), zap.String("kind", string(e.Kind)))
	return e, nil
}

// ListTokens lists the tokens written after fromToken. If fromToken is empty the log is read from the beginning.
//
// When more tokens remain, next is the last returned token: use it to paginate to the next set of tokens.
func (w *WAL) ListTokens(ctx context.Context, fromToken string, max int) (tokens []string, next string, err error) {
	if max <= 0 {
		return nil, "", status.ErrValidation.WrapMessage("max count needs to be greater than 0: %d", max)
	}
	if max > MaxEntriesPerList {
		max = MaxEntriesPerList
	}
	if fromToken != "" {
		if _, err = ksuid.Parse(fromToken); err != nil {
			return nil, "", status.ErrValidation.WrapMessage("invalid token %q", fromToken)
		}
	}

	keys, err := w.store.KeysPrefix(ctx, model.WALPrefix)
	if err != nil {
		return nil, "", status.ErrStorage.WrapWithLog(w.l, err, zap.String("fromToken", fromToken))
	}

	// the radix tree iterates in lexical order, which is the order of ksuids
	txn := iradix.New().Txn()
	for _, key := range keys {
		token := strings.TrimSuffix(strings.TrimPrefix(key, model.WALPrefix), ".json")
		if _, err := ksuid.Parse(token); err != nil {
			continue
		}
		txn.Insert([]byte(token), struct{}{})
	}
	iterator := txn.Commit().Root().Iterator()
	if fromToken != "" {
		iterator.SeekLowerBound([]byte(fromToken))
	}

	for {
		key, _, ok := iterator.Next()
		if !ok {
			return tokens, "", nil
		}
		if bytes.Equal(key, []byte(fromToken)) {
			continue
		}
		if len(tokens) == max {
			return tokens, tokens[len(tokens)-1], nil
		}
		tokens = append(tokens, string(key))
	}
}

// ListEntries reads the entries written after fromToken, in order
func (w *WAL) ListEntries(ctx context.Context, fromToken string, max int) ([]Entry, string, error) {
	tokens, next, err := w.ListTokens(ctx, fromToken, max)
	if err != nil {
		return nil, "", err
	}

	entries := make([]Entry, len(tokens))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(w.maxConcurrency)
	for i := range tokens {
		i := i
		group.Go(func() error {
			return w.read(gctx, tokens[i], &entries[i])
		})
	}
	if err := group.Wait(); err != nil {
		return nil, "", err
	}
	return entries, next, nil
}

func (w *WAL) read(ctx context.Context, token string, entry *Entry) error {
	data, err := storage.ReadAll(ctx, w.store, model.GetArchivePathToWALEntry(token))
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return status.ErrNotFound.WrapMessage("wal entry %s", token)
		}
		return status.ErrStorage.WrapWithLog(w.l, err, zap.String("token", token))
	}
	if err := model.JSON.Unmarshal(data, entry); err != nil {
		return status.ErrStorage.WrapMessage("token: %s, err: %v", token, err)
	}
	w.l.Debug("read wal entry", zap.String("token", token))
	return nil
}
