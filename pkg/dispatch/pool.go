package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Job describes a bundle to build
type Job struct {
	Manifest model.Manifest
}

// Key coalesces requests for the same bundle
func (j Job) Key() string {
	return model.BundleFile(j.Manifest.Identity, j.Manifest.Type)
}

// BuildFunc builds and stores a bundle
type BuildFunc func(context.Context, Job) (model.Bundle, error)

type outcome struct {
	bundle model.Bundle
	err    error
}

type task struct {
	job      Job
	done     chan outcome
	enqueued time.Time
}

// Pool is the worker dispatch pool
type Pool struct {
	build   BuildFunc
	workers int
	queue   *fifo
	flights singleflight.Group
	loops   *pool.Pool
	closed  int32
	l       *zap.Logger
}

// New starts a pool of workers executing build
func New(build BuildFunc, opts ...Option) *Pool {
	p := &Pool{
		build:   build,
		workers: DefaultWorkers,
		queue:   newFIFO(),
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(p)
	}
	if p.workers < 1 {
		p.workers = 1
	}

	p.loops = pool.New().WithMaxGoroutines(p.workers)
	for i := 0; i < p.workers; i++ {
		p.loops.Go(p.loop)
	}
	p.l.Info("build pool started", zap.Int("workers", p.workers))
	return p
}

// Build requests a bundle and waits for it.
//
// Concurrent requests for the same job share one build. Cancelling ctx only stops
// this caller from waiting.
func (p *Pool) Build(ctx context.Context, job Job) (model.Bundle, error) {
	ch := p.flights.DoChan(job.Key(), func() (interface{}, error) {
		return p.enqueue(job)
	})

	select {
	case res := <-ch:
		if res.Shared {
			coalescedCounter.Inc()
		}
		if res.Err != nil {
			return model.Bundle{}, res.Err
		}
		return res.Val.(model.Bundle), nil
	case <-ctx.Done():
		return model.Bundle{}, ctx.Err()
	}
}

// Submit requests a bundle without waiting for it
func (p *Pool) Submit(job Job) error {
	if atomic.LoadInt32(&p.closed) == 1 {
		return status.ErrClosed
	}
	_ = p.flights.DoChan(job.Key(), func() (interface{}, error) {
		return p.enqueue(job)
	})
	return nil
}

// enqueue hands a job over to the workers and waits for its outcome
func (p *Pool) enqueue(job Job) (model.Bundle, error) {
	t := &task{job: job, done: make(chan outcome, 1), enqueued: time.Now()}
	if !p.queue.push(t) {
		return model.Bundle{}, status.ErrClosed
	}
	queuedGauge.Inc()

	res := <-t.done
	return res.bundle, res.err
}

func (p *Pool) loop() {
	for {
		t, ok := p.queue.pop()
		if !ok {
			return
		}
		queuedGauge.Dec()
		t.done <- p.run(t)
	}
}

func (p *Pool) run(t *task) (res outcome) {
	typ := string(t.job.Manifest.Type)
	lg := p.l.With(zap.String("identity", t.job.Manifest.Identity), zap.String("type", typ))
	began := time.Now()
	runningGauge.Inc()

	defer func() {
		runningGauge.Dec()
		if r := recover(); r != nil {
			res = outcome{err: status.ErrTransform.WrapMessage("build panicked: %v", r)}
		}
		buildDuration.WithLabelValues(typ).Observe(time.Since(began).Seconds())
		if res.err != nil {
			buildsCounter.WithLabelValues(typ, "failed").Inc()
			lg.Warn("build failed", zap.Error(res.err))
			return
		}
		buildsCounter.WithLabelValues(typ, "completed").Inc()
		lg.Info("build completed",
			zap.Duration("queued", began.Sub(t.enqueued)), zap.Duration("elapsed", time.Since(began)))
	}()

	bundle, err := p.build(context.Background(), t.job)
	return outcome{bundle: bundle, err: err}
}

// Queued returns the number of builds waiting for a worker
func (p *Pool) Queued() int {
	return p.queue.len()
}

// Close stops accepting builds, then waits for the queued and running builds to complete
func (p *Pool) Close() {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	p.queue.close()
	p.loops.Wait()
	p.l.Info("build pool stopped")
}
