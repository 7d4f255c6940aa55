package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"main/pkg/exception"
)

func TestTaskRunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	task := NewTask("tick", 10*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	if err := task.Start(t.Context()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !task.Running() {
		t.Fatal("task should report running")
	}

	deadline := time.After(time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs before deadline", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	task.Stop()
	if task.Running() {
		t.Fatal("stopped task should not report running")
	}

	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != settled {
		t.Fatal("stopped task kept running")
	}
}

func TestTaskRunsNeverOverlap(t *testing.T) {
	var mu sync.Mutex
	var active, maxActive int

	task := NewTask("slow", 5*time.Millisecond, func(context.Context) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	})

	if err := task.Start(t.Context()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	task.Stop()

	mu.Lock()
	defer mu.Unlock()
	if maxActive != 1 {
		t.Fatalf("cycles overlapped: max %d concurrent", maxActive)
	}
}

func TestTaskRejectsBadArguments(t *testing.T) {
	if err := NewTask("nil-fn", time.Second, nil).Start(t.Context()); err != exception.ErrInvalidArgument {
		t.Fatalf("nil fn should be rejected, got %v", err)
	}
	if err := NewTask("no-interval", 0, func(context.Context) {}).Start(t.Context()); err != exception.ErrInvalidArgument {
		t.Fatalf("zero interval should be rejected, got %v", err)
	}
}

func TestTaskDoubleStartAndStop(t *testing.T) {
	task := NewTask("idem", 10*time.Millisecond, func(context.Context) {})

	if err := task.Start(t.Context()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := task.Start(t.Context()); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}

	task.Stop()
	task.Stop() // idempotent
}
