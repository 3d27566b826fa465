package batcher

import (
	"sync"
	"time"
)

// Batcher collects items and flushes them based on size or time thresholds.
// Flushes always run on the batcher's own goroutine: Add never invokes the
// flush function and never blocks on the sink, which keeps the producing
// path fire-and-forget. At most one flush is in flight at a time, bounding
// the pressure on the sink.
type Batcher[T any] struct {
	mu      sync.Mutex
	buffer  []T
	maxSize int
	flushFn func([]T) error

	kick chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup

	lastError error
}

// New creates a batcher that flushes when maxSize items accumulate or
// interval elapses, whichever comes first.
func New[T any](maxSize int, interval time.Duration, flushFn func([]T) error) *Batcher[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	b := &Batcher[T]{
		maxSize: maxSize,
		flushFn: flushFn,
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	b.wg.Add(1)
	go b.loop(interval)
	return b
}

// Add queues an item. When the size threshold is reached the background
// flusher is signalled; the caller returns immediately either way.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	b.buffer = append(b.buffer, item)
	full := len(b.buffer) >= b.maxSize
	b.mu.Unlock()
	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// AddAll queues a batch of items at once.
func (b *Batcher[T]) AddAll(items []T) {
	if len(items) == 0 {
		return
	}
	b.mu.Lock()
	b.buffer = append(b.buffer, items...)
	full := len(b.buffer) >= b.maxSize
	b.mu.Unlock()
	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// LastError returns the most recent flush error, if any.
func (b *Batcher[T]) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}

// Close stops the flusher and drains whatever is still buffered.
func (b *Batcher[T]) Close() error {
	close(b.stop)
	b.wg.Wait()
	b.flush()
	return b.LastError()
}

func (b *Batcher[T]) loop(interval time.Duration) {
	defer b.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.kick:
			b.flush()
		case <-ticker.C:
			b.flush()
		case <-b.stop:
			return
		}
	}
}

func (b *Batcher[T]) flush() {
	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.buffer
	b.buffer = nil
	b.mu.Unlock()

	err := b.flushFn(batch)

	b.mu.Lock()
	b.lastError = err
	b.mu.Unlock()
}
