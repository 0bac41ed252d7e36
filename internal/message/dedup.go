package message

import (
	"sync"
	"time"
)

// Dedup drops redelivered inbound events using a TTL cache. Each key also keeps
// the verdict reached for its first delivery, so a redelivery is answered the same way.
type Dedup struct {
	mu    sync.Mutex
	cache map[string]dedupEntry
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

type dedupEntry struct {
	seen    time.Time
	handled bool
}

func NewDedup(ttl time.Duration) *Dedup {
	d := &Dedup{
		cache: make(map[string]dedupEntry),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go d.cleanupLoop()
	return d
}

// Claim records key as seen. When key was already seen within the TTL, dup is
// true and handled is the verdict Resolve stored for the first delivery (false
// while that delivery is still being processed). Empty keys are never duplicates.
func (d *Dedup) Claim(key string) (handled, dup bool) {
	if key == "" {
		return false, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, exists := d.cache[key]; exists && time.Since(e.seen) < d.ttl {
		return e.handled, true
	}
	d.cache[key] = dedupEntry{seen: time.Now()}
	return false, false
}

// Resolve stores the verdict for a key previously claimed.
func (d *Dedup) Resolve(key string, handled bool) {
	if key == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, exists := d.cache[key]; exists {
		e.handled = handled
		d.cache[key] = e
	}
}

// Len returns the number of cached keys, expired or not.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cache)
}

// Close stops the cleanup goroutine.
func (d *Dedup) Close() {
	d.once.Do(func() { close(d.stop) })
}

func (d *Dedup) cleanupLoop() {
	ticker := time.NewTicker(d.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.sweep(time.Now())
		}
	}
}

func (d *Dedup) sweep(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := now.Add(-d.ttl)
	for k, e := range d.cache {
		if e.seen.Before(cutoff) {
			delete(d.cache, k)
		}
	}
}
