// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"strings"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var storageOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "podbundle",
	Subsystem: "storage",
	Name:      "operation_duration_seconds",
	Help:      "Duration of storage sink operations.",
	Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
}, []string{"sink", "op", "status"})

// Instrument wraps a store with tracing spans, debug logs and operation metrics.
func Instrument(tr opentracing.Tracer, l *zap.Logger, store Store) Store {
	if tr == nil {
		tr = opentracing.GlobalTracer()
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &instrumentedStore{
		tr:    tr,
		store: store,
		l:     l.With(zap.String("sink", store.String())),
		sink:  sinkName(store),
	}
}

// sinkName keeps the scheme of the store description as a low cardinality label
func sinkName(store Store) string {
	name := store.String()
	if idx := strings.IndexAny(name, ":@"); idx > 0 {
		return name[:idx]
	}
	return name
}

type instrumentedStore struct {
	store Store
	tr    opentracing.Tracer
	l     *zap.Logger
	sink  string
}

func (i *instrumentedStore) opName(name string) string {
	return strings.Join([]string{"storage", i.sink, name}, ".")
}

func (i *instrumentedStore) start(ctx context.Context, name string) (opentracing.Span, func(error)) {
	parent := opentracing.SpanFromContext(ctx)
	var span opentracing.Span
	if parent != nil {
		span = i.tr.StartSpan(i.opName(name), opentracing.ChildOf(parent.Context()))
	} else {
		span = i.tr.StartSpan(i.opName(name))
	}
	began := time.Now()

	return span, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			ext.Error.Set(span, true)
			span.LogKV("error", err.Error())
		}
		storageOpDuration.WithLabelValues(i.sink, name, outcome).Observe(time.Since(began).Seconds())
		span.Finish()
	}
}

func (i *instrumentedStore) Has(ctx context.Context, key string) (has bool, err error) {
	_, done := i.start(ctx, "Has")
	defer func() { done(err) }()
	i.l.Debug("storage has", zap.String("key", key))

	return i.store.Has(ctx, key)
}

func (i *instrumentedStore) Get(ctx context.Context, key string) (rdr io.ReadCloser, err error) {
	_, done := i.start(ctx, "Get")
	defer func() { done(err) }()
	i.l.Debug("storage get", zap.String("key", key))

	return i.store.Get(ctx, key)
}

func (i *instrumentedStore) Put(ctx context.Context, key string, rdr io.Reader, exclusive bool) (err error) {
	_, done := i.start(ctx, "Put")
	defer func() { done(err) }()
	i.l.Debug("storage put", zap.String("key", key), zap.Bool("exclusive", exclusive))

	return i.store.Put(ctx, key, rdr, exclusive)
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) (err error) {
	_, done := i.start(ctx, "Delete")
	defer func() { done(err) }()
	i.l.Debug("storage delete", zap.String("key", key))

	return i.store.Delete(ctx, key)
}

func (i *instrumentedStore) Keys(ctx context.Context) (keys []string, err error) {
	_, done := i.start(ctx, "Keys")
	defer func() { done(err) }()
	i.l.Debug("storage keys")

	return i.store.Keys(ctx)
}

func (i *instrumentedStore) KeysPrefix(ctx context.Context, prefix string) (keys []string, err error) {
	_, done := i.start(ctx, "KeysPrefix")
	defer func() { done(err) }()
	i.l.Debug("storage keys with prefix", zap.String("prefix", prefix))

	return i.store.KeysPrefix(ctx, prefix)
}

func (i *instrumentedStore) Clear(ctx context.Context) (err error) {
	_, done := i.start(ctx, "Clear")
	defer func() { done(err) }()
	i.l.Info("storage clear")

	return i.store.Clear(ctx)
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}
