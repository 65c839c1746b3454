// Package tasks tracks background units of work so they can be cancelled
// collectively at shutdown and their failures surfaced.
package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/medleyd/medley/internal/logger"
)

// Task is a handle to one tracked unit of background work.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Name returns the identifier the task was spawned with.
func (t *Task) Name() string { return t.name }

// Cancel requests cancellation. It does not wait for the task to stop.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task has finished and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.Err()
}

// Err returns the task's error. Only meaningful once Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Tracker spawns and tracks background tasks.
type Tracker struct {
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	tasks  map[*Task]struct{}
	closed bool
}

func NewTracker(log *logger.Logger) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		log:    log.WithComponent("tasks"),
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[*Task]struct{}),
	}
}

// Spawn runs fn on its own goroutine with a context derived from the
// tracker root. The task is removed from the tracked set on completion and
// any unhandled failure is logged at debug level with the task name.
func (tr *Tracker) Spawn(name string, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(tr.ctx)
	t := &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	tr.mu.Lock()
	if tr.closed {
		tr.mu.Unlock()
		// tracker already shut down; complete immediately as cancelled
		cancel()
		t.mu.Lock()
		t.err = context.Canceled
		t.mu.Unlock()
		close(t.done)
		return t
	}
	tr.tasks[t] = struct{}{}
	tr.wg.Add(1)
	tr.mu.Unlock()

	go func() {
		defer tr.wg.Done()
		err := fn(ctx)
		cancel()

		t.mu.Lock()
		t.err = err
		t.mu.Unlock()

		tr.mu.Lock()
		delete(tr.tasks, t)
		tr.mu.Unlock()

		close(t.done)

		if err != nil && !errors.Is(err, context.Canceled) {
			tr.log.Debug("task failed", "task", name, "error", err)
		}
	}()
	return t
}

// Running returns the number of currently tracked tasks.
func (tr *Tracker) Running() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.tasks)
}

// Shutdown cancels every tracked task and waits for all of them to finish.
func (tr *Tracker) Shutdown() {
	tr.mu.Lock()
	tr.closed = true
	tr.mu.Unlock()
	tr.cancel()
	tr.wg.Wait()
}
