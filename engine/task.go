package engine

import (
	"context"
	"sync"
)

// Task is a batch running in the background.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	res *BatchResult
	err error
}

// Start runs fn on its own goroutine. onDone, when set, is called exactly
// once with the final result after fn returns.
func Start(ctx context.Context, fn func(context.Context) (*BatchResult, error), onDone func(*BatchResult, error)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		res, err := fn(ctx)
		if res == nil {
			res = &BatchResult{}
		}
		t.mu.Lock()
		t.res, t.err = res, err
		t.mu.Unlock()
		if onDone != nil {
			onDone(res, err)
		}
	}()
	return t
}

// Cancel asks the batch to stop at its next DOI.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once the batch has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the batch finishes.
func (t *Task) Wait() (BatchResult, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.res, t.err
}
