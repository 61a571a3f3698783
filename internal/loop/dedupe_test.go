package loop

import (
	"testing"
	"time"
)

func TestDedupeTryAcquire(t *testing.T) {
	d := NewDedupe(time.Minute, 10)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if !d.TryAcquire("a") {
		t.Fatal("first acquire failed")
	}
	if d.TryAcquire("a") {
		t.Error("duplicate acquire succeeded")
	}

	// After the TTL the key is free again.
	now = now.Add(2 * time.Minute)
	if !d.TryAcquire("a") {
		t.Error("acquire after expiry failed")
	}
}

func TestDedupeRelease(t *testing.T) {
	d := NewDedupe(time.Minute, 10)

	d.TryAcquire("a")
	d.Release("a")
	if !d.TryAcquire("a") {
		t.Error("acquire after release failed")
	}
}

func TestDedupeBounded(t *testing.T) {
	d := NewDedupe(time.Hour, 3)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	for i, key := range []string{"a", "b", "c", "d", "e"} {
		now = now.Add(time.Second)
		if !d.TryAcquire(key) {
			t.Fatalf("acquire %d failed", i)
		}
	}
	if len(d.entries) > 3 {
		t.Errorf("entries = %d, want at most 3", len(d.entries))
	}
	// The newest key must have survived the evictions.
	if d.TryAcquire("e") {
		t.Error("newest key was evicted")
	}
}
