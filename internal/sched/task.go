package sched

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/pkg/exception"
)

// Task runs fn on a fixed interval. Runs are invoked from a single
// goroutine, so a new cycle never starts before the previous one returns.
type Task struct {
	name     string
	interval time.Duration
	fn       func(context.Context)

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTask creates a stopped task.
func NewTask(name string, interval time.Duration, fn func(context.Context)) *Task {
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
	}
}

// Start launches the ticker loop. Starting a running task is an error.
func (t *Task) Start(ctx context.Context) error {
	if t.fn == nil || t.interval <= 0 {
		return exception.ErrInvalidArgument
	}
	if t.running.Swap(true) {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.fn(ctx)
			}
		}
	}()

	logs.Infof("task %s started, interval %s", t.name, t.interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (t *Task) Stop() {
	if !t.running.Swap(false) {
		return
	}
	t.cancel()
	<-t.done
	logs.Infof("task %s stopped", t.name)
}

// Running reports whether the loop is active.
func (t *Task) Running() bool {
	return t.running.Load()
}
