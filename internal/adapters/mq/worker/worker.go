// Package worker drains the play-event queue into the listener library.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/tidewave/melodex/internal/adapters/mq/queue"
	"github.com/tidewave/melodex/pkg/logger"
	"github.com/tidewave/melodex/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
)

// Event is what workers read off the queue.
type Event = queue.Event

// Recorder persists one play into the listener's recently-played log.
type Recorder interface {
	RecordPlay(ctx context.Context, listenerID, trackID string, at time.Time) error
}

// Dequeuer defines how workers receive events.
type Dequeuer interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker consumes play events and writes them through the Recorder.
type Worker struct {
	queue    Dequeuer
	recorder Recorder
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewWorker creates a single worker.
func NewWorker(q Dequeuer, rec Recorder, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		recorder: rec,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("play-worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run consumes events until ctx is canceled, the queue closes, or Shutdown
// is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "recording play failed",
					logger.String("eventID", e.EventID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for in-flight work up to ctx's deadline.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, e Event) error {
	if err := w.recorder.RecordPlay(ctx, e.ListenerID, e.TrackID, e.PlayedAt); err != nil {
		metrics.RecordPlayRecordError()
		return fmt.Errorf("record play %s: %w", e.EventID, err)
	}
	metrics.RecordPlayRecorded()
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates workerCount workers; non-positive counts default to a
// CPU-derived size.
func NewPool(workerCount int, q Dequeuer, rec Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("play-worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, rec, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdatePlayWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals all workers and waits briefly for each to drain.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
			p.logger.Warn(context.Background(), "worker stop timed out", logger.String("worker", w.name))
		}
	}
}
