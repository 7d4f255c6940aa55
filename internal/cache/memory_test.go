package cache

import (
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Fatal("missing key should not be found")
	}

	if err := m.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("get mismatch: %v %v %v", v, ok, err)
	}

	// last write wins
	if err := m.Set(ctx, "k", "v2", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, _, _ = m.Get(ctx, "k")
	if v != "v2" {
		t.Fatalf("overwrite mismatch: %v", v)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("deleted key should not be found")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()

	clock := time.Now()
	m.now = func() time.Time { return clock }

	if err := m.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("fresh entry should be found")
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("expired entry should be dropped")
	}
}

func TestMemoryTryLock(t *testing.T) {
	m := NewMemory()
	ctx := t.Context()

	clock := time.Now()
	m.now = func() time.Time { return clock }

	ok, err := m.TryLock(ctx, "job", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock should succeed: %v %v", ok, err)
	}

	ok, _ = m.TryLock(ctx, "job", time.Minute)
	if ok {
		t.Fatal("held lock should not be re-acquired")
	}

	// expiry frees the lock without an explicit unlock
	clock = clock.Add(2 * time.Minute)
	ok, _ = m.TryLock(ctx, "job", time.Minute)
	if !ok {
		t.Fatal("expired lock should be acquirable")
	}

	if err := m.Unlock(ctx, "job"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	ok, _ = m.TryLock(ctx, "job", time.Minute)
	if !ok {
		t.Fatal("released lock should be acquirable")
	}
}
