package loop

import (
	"sync"
	"time"
)

// Dedupe is a bounded in-process set with per-entry expiry. It guards
// against sending the same outward call twice within one process lifetime
// while staying bounded in memory. It does not survive restarts; the
// persisted sent flag covers that.
type Dedupe struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	max     int
	now     func() time.Time
}

// NewDedupe creates a dedupe set. Entries expire after ttl; when the set
// exceeds max entries the oldest are dropped first.
func NewDedupe(ttl time.Duration, max int) *Dedupe {
	return &Dedupe{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

// TryAcquire records the key and reports whether it was absent. A false
// return means the key was acquired recently and the caller must not act.
func (d *Dedupe) TryAcquire(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expires, ok := d.entries[key]; ok && now.Before(expires) {
		return false
	}
	d.evict(now)
	d.entries[key] = now.Add(d.ttl)
	return true
}

// Release frees the key so a later attempt may retry.
func (d *Dedupe) Release(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, key)
}

// evict drops expired entries, then the oldest ones until under the bound.
// Caller holds the lock.
func (d *Dedupe) evict(now time.Time) {
	for key, expires := range d.entries {
		if !now.Before(expires) {
			delete(d.entries, key)
		}
	}
	for len(d.entries) >= d.max && d.max > 0 {
		var oldestKey string
		var oldest time.Time
		for key, expires := range d.entries {
			if oldestKey == "" || expires.Before(oldest) {
				oldestKey, oldest = key, expires
			}
		}
		delete(d.entries, oldestKey)
	}
}
