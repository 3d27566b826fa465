package ratelimit

import (
	"sync"
	"time"
)

// Defaults for the collect endpoint admission gate.
const (
	DefaultMax           = 200
	DefaultWindow        = time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

type entry struct {
	count  int
	expiry time.Time
}

// Limiter is a per-site fixed-window admission gate. The window is fixed,
// not sliding: a burst straddling a window boundary can admit up to twice
// the nominal rate over a short span. Each process instance enforces its own
// limit independently.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	max     int
	window  time.Duration

	sweepEvery time.Duration
	stop       chan struct{}
	wg         sync.WaitGroup
	now        func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock swaps the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSweepInterval overrides how often expired entries are evicted.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) { l.sweepEvery = d }
}

// New builds a Limiter admitting max calls per site per window and starts
// its background sweep. Callers own the instance and must Close it.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		entries:    make(map[string]*entry),
		max:        max,
		window:     window,
		sweepEvery: DefaultSweepInterval,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.wg.Add(1)
	go l.sweepLoop()
	return l
}

// Admit reports whether another call for siteID fits in the current window.
// The first call after a window's expiry resets the count to 1.
func (l *Limiter) Admit(siteID string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[siteID]
	if !ok || now.After(e.expiry) {
		l.entries[siteID] = &entry{count: 1, expiry: now.Add(l.window)}
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// Len returns the number of tracked sites, expired entries included.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	close(l.stop)
	l.wg.Wait()
}

func (l *Limiter) sweepLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops entries whose window has already expired, bounding memory to
// sites active since the last sweep.
func (l *Limiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for siteID, e := range l.entries {
		if now.After(e.expiry) {
			delete(l.entries, siteID)
		}
	}
}
