package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

// worker runs submitted jobs one at a time on its own goroutine.
// The job channel is unbuffered, so a job is either accepted by the loop or never queued at all.
type worker struct {
	jobs     chan func()
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

func newWorker() *worker {
	w := &worker{
		jobs: make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go w.loop()

	return w
}

func (w *worker) loop() {
	defer close(w.done)

	for {
		select {
		case job := <-w.jobs:
			job()

		case <-w.quit:
			return
		}
	}
}

// signalStop makes the loop exit after the job it is currently running.
// It is safe to call from inside a job.
func (w *worker) signalStop() {
	w.quitOnce.Do(func() { close(w.quit) })
}

// stop signals the loop and waits until it has exited. Never call it from inside a job.
func (w *worker) stop() {
	w.signalStop()
	<-w.done
}

type outcome[T any] struct {
	value T
	err   error
}

// runOnWorker hands fn to the worker and waits for its result.
//
// If ctx ends first, the caller gets ctx.Err() while fn keeps running with the same ctx, so the
// toolkit call sees the cancellation as well. A non-nil discard receives a successful value
// nobody waited for.
func runOnWorker[T any](
	ctx context.Context,
	w *worker,
	fn func(ctx context.Context) (T, error),
	discard func(T),
) (T, error) {

	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done := make(chan outcome[T], 1)
	job := func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- outcome[T]{err: fmt.Errorf("worker job panicked: %v", recovered)}
			}
		}()

		value, err := fn(ctx)
		done <- outcome[T]{value: value, err: err}
	}

	select {
	case w.jobs <- job:

	case <-w.quit:
		return zero, asyncsql.ErrWorkerStopped

	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case out := <-done:
		return out.value, out.err

	case <-ctx.Done():
		if discard != nil {
			go func() {
				if out := <-done; out.err == nil {
					discard(out.value)
				}
			}()
		}

		return zero, ctx.Err()
	}
}
