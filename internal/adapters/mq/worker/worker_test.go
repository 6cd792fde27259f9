package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tidewave/melodex/internal/adapters/mq/queue"
	"github.com/tidewave/melodex/internal/adapters/mq/worker"
)

// captureRecorder collects recorded plays and can be told to fail.
type captureRecorder struct {
	mu     sync.Mutex
	plays  []string
	failOn string
}

func (r *captureRecorder) RecordPlay(_ context.Context, listenerID, trackID string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if trackID == r.failOn {
		return errors.New("store unavailable")
	}
	r.plays = append(r.plays, listenerID+"/"+trackID)
	return nil
}

func (r *captureRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.plays))
	copy(out, r.plays)
	return out
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestWorkerDrainsQueue(t *testing.T) {
	convey.Convey("Given a worker over a queue of events", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		rec := &captureRecorder{}

		for i := 0; i < 5; i++ {
			convey.So(q.Enqueue(ctx, worker.Event{
				EventID:    fmt.Sprintf("e%d", i),
				ListenerID: "l1",
				TrackID:    fmt.Sprintf("t%d", i),
				PlayedAt:   time.Now(),
			}), convey.ShouldBeTrue)
		}

		w := worker.NewWorker(q, rec)
		go w.Run(ctx)

		convey.Convey("Then every event reaches the recorder", func() {
			convey.So(waitFor(2*time.Second, func() bool { return len(rec.recorded()) == 5 }), convey.ShouldBeTrue)

			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerSurvivesRecordErrors(t *testing.T) {
	convey.Convey("Given a recorder that fails for one track", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		rec := &captureRecorder{failOn: "t-bad"}

		for _, trackID := range []string{"t1", "t-bad", "t2"} {
			convey.So(q.Enqueue(ctx, worker.Event{EventID: trackID, ListenerID: "l1", TrackID: trackID}), convey.ShouldBeTrue)
		}

		w := worker.NewWorker(q, rec, worker.WithName("resilient"))
		go w.Run(ctx)

		convey.Convey("Then the failure is skipped and later events still land", func() {
			convey.So(waitFor(2*time.Second, func() bool { return len(rec.recorded()) == 2 }), convey.ShouldBeTrue)
			convey.So(rec.recorded(), convey.ShouldResemble, []string{"l1/t1", "l1/t2"})

			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerStopsOnQueueClose(t *testing.T) {
	convey.Convey("Given a running worker whose queue closes", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		w := worker.NewWorker(q, &captureRecorder{})

		done := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(done)
		}()
		convey.So(q.Close(), convey.ShouldBeNil)

		convey.Convey("Then the run loop returns on its own", func() {
			select {
			case <-done:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(2 * time.Second):
				convey.So("worker never stopped after queue close", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestPoolProcessesConcurrently(t *testing.T) {
	convey.Convey("Given a pool of four workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		rec := &captureRecorder{}
		p := worker.NewPool(4, q, rec)
		p.Start(ctx)

		const events = 40
		for i := 0; i < events; i++ {
			convey.So(q.Enqueue(ctx, worker.Event{
				EventID:    fmt.Sprintf("e%d", i),
				ListenerID: "l1",
				TrackID:    fmt.Sprintf("t%d", i),
			}), convey.ShouldBeTrue)
		}

		convey.Convey("Then the pool drains everything and stops cleanly", func() {
			convey.So(waitFor(3*time.Second, func() bool { return len(rec.recorded()) == events }), convey.ShouldBeTrue)
			p.Stop()
		})
	})
}
