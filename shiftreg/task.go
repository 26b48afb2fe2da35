package shiftreg

import (
	"context"
	"sync"
)

// Task is a sequence running on its own goroutine.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Go runs fn in the background, e.g. Go(ctx, sr.LampTest). The task's
// context is derived from ctx.
func Go(ctx context.Context, fn func(context.Context) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()

		err := fn(ctx)

		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	}()

	return t
}

// Cancel asks the task to stop; it returns without waiting.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task has finished and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.Err()
}

// Err returns the task's error, or nil while it is still running.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}
