package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medleyd/medley/internal/logger"
)

func TestSpawnRunsAndDeregisters(t *testing.T) {
	tr := NewTracker(logger.Default())
	defer tr.Shutdown()

	done := make(chan struct{})
	task := tr.Spawn("work", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
	if err := task.Wait(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if n := tr.Running(); n != 0 {
		t.Errorf("expected 0 running tasks, got %d", n)
	}
}

func TestTaskErrorIsSurfaced(t *testing.T) {
	tr := NewTracker(logger.Default())
	defer tr.Shutdown()

	want := errors.New("boom")
	task := tr.Spawn("failing", func(ctx context.Context) error {
		return want
	})
	if err := task.Wait(); !errors.Is(err, want) {
		t.Errorf("Wait = %v, want %v", err, want)
	}
}

func TestCancelStopsTask(t *testing.T) {
	tr := NewTracker(logger.Default())
	defer tr.Shutdown()

	started := make(chan struct{})
	task := tr.Spawn("blocked", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	task.Cancel()
	if err := task.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}

func TestShutdownCancelsAll(t *testing.T) {
	tr := NewTracker(logger.Default())

	started := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		tr.Spawn("blocked", func(ctx context.Context) error {
			started <- struct{}{}
			<-ctx.Done()
			return ctx.Err()
		})
	}
	<-started
	<-started

	tr.Shutdown()
	if n := tr.Running(); n != 0 {
		t.Errorf("expected 0 running tasks after shutdown, got %d", n)
	}
}

func TestSpawnAfterShutdown(t *testing.T) {
	tr := NewTracker(logger.Default())
	tr.Shutdown()

	ran := false
	task := tr.Spawn("late", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err := task.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("task must not run after shutdown")
	}
}
