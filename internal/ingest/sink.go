package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sitepulse/internal/model"
	"sitepulse/pkg/batcher"
)

// Inserter is the slice of the store client the sink needs.
type Inserter interface {
	InsertEvents(ctx context.Context, rows []model.EventRow) error
}

// RowSink accepts normalized rows for asynchronous persistence. The collect
// path never waits on it.
type RowSink interface {
	AddAll(rows []model.EventRow)
}

// Sink batches rows and writes them to ClickHouse in the background. Insert
// failures and timeouts are logged and the batch is dropped; there are no
// retries. Lost rows degrade analytics quality, they do not break
// correctness, and retrying would let a slow store back up the collector.
type Sink struct {
	b *batcher.Batcher[model.EventRow]
}

// NewSink builds the async pipeline. timeout bounds each insert so a stalled
// store cannot wedge the flusher.
func NewSink(store Inserter, size int, interval, timeout time.Duration, log *zap.Logger) *Sink {
	flush := func(rows []model.EventRow) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		if err := store.InsertEvents(ctx, rows); err != nil {
			insertErrors.Inc()
			log.Error("event insert failed, batch dropped",
				zap.Int("rows", len(rows)),
				zap.Error(err))
			return err
		}
		insertDuration.Observe(time.Since(start).Seconds())
		batchSizeHistogram.Observe(float64(len(rows)))
		return nil
	}
	return &Sink{b: batcher.New(size, interval, flush)}
}

// AddAll queues rows without blocking on the store.
func (s *Sink) AddAll(rows []model.EventRow) {
	s.b.AddAll(rows)
}

// Close drains buffered rows and stops the flusher.
func (s *Sink) Close() error {
	return s.b.Close()
}
