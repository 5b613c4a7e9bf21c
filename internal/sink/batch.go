// =============================================================================
// IRS 527 Splitter - Batched Writer
// =============================================================================
//
// Expenditure records finish on many worker goroutines in no particular order.
// Instead of having every worker take a file lock, completed lines go onto a
// bounded channel and one writer goroutine owns the "B" sink:
//
//   workers --Enqueue--> [ queue, bounded ] --> writer goroutine --> Sink
//
// The writer collects lines into a batch and writes it out when:
//   - the batch reaches BatchSize lines
//   - no line has arrived for FlushInterval
//   - the queue is closed
//
// Batches are written in the order their lines arrived, so output order is
// arrival order, not input order.
//
// SHUTDOWN:
//   Close the writer only after every producer has returned. Close closes the
//   queue, waits for the goroutine to write what is left, and returns the
//   first write error, if any.
//
// =============================================================================

package sink

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Default batching parameters.
const (
	DefaultBatchSize     = 1000
	DefaultQueueCapacity = 1000
	DefaultFlushInterval = time.Second
)

// BatchOptions configures a BatchWriter. Zero values take the defaults.
type BatchOptions struct {
	BatchSize     int
	QueueCapacity int
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// BatchWriter drains a bounded queue of lines into one Sink.
type BatchWriter struct {
	sink          *Sink
	queue         chan string
	done          chan struct{}
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	batches atomic.Int64
	written atomic.Int64

	// err is set by the writer goroutine before done is closed.
	err error

	closeOnce sync.Once
}

// NewBatchWriter starts the writer goroutine for s.
func NewBatchWriter(s *Sink, opts BatchOptions) *BatchWriter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &BatchWriter{
		sink:          s,
		queue:         make(chan string, opts.QueueCapacity),
		done:          make(chan struct{}),
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
		logger:        opts.Logger.With(slog.String("component", "batchwriter")),
	}

	go w.run()
	return w
}

// Enqueue hands a line to the writer. It blocks while the queue is full and
// returns ctx.Err() if ctx is done first. Enqueue must not be called after
// Close.
func (w *BatchWriter) Enqueue(ctx context.Context, line string) error {
	select {
	case w.queue <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting lines, waits until everything queued is written and
// returns the first write error.
func (w *BatchWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.queue)
	})
	<-w.done
	return w.err
}

// Done is closed once the writer goroutine has exited.
func (w *BatchWriter) Done() <-chan struct{} {
	return w.done
}

// Batches returns the number of batches written so far.
func (w *BatchWriter) Batches() int64 {
	return w.batches.Load()
}

// Written returns the number of lines written so far.
func (w *BatchWriter) Written() int64 {
	return w.written.Load()
}

func (w *BatchWriter) run() {
	defer close(w.done)

	batch := make([]string, 0, w.batchSize)
	idle := time.NewTimer(w.flushInterval)
	defer idle.Stop()

	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.flush(batch, "closed")
				return
			}
			batch = append(batch, line)
			if len(batch) >= w.batchSize {
				w.flush(batch, "full")
				batch = batch[:0]
			}
			idle.Reset(w.flushInterval)

		case <-idle.C:
			if len(batch) > 0 {
				w.flush(batch, "idle")
				batch = batch[:0]
			}
			idle.Reset(w.flushInterval)
		}
	}
}

// flush writes batch to the sink. After the first error, later batches are
// still drained from the queue but discarded.
func (w *BatchWriter) flush(batch []string, reason string) {
	if len(batch) == 0 {
		return
	}
	if w.err != nil {
		return
	}

	for _, line := range batch {
		if err := w.sink.WriteLine(line); err != nil {
			w.fail(err)
			return
		}
	}
	if err := w.sink.Flush(); err != nil {
		w.fail(err)
		return
	}

	w.batches.Add(1)
	w.written.Add(int64(len(batch)))
	w.logger.Debug("batch written",
		slog.Int("lines", len(batch)),
		slog.String("reason", reason))
}

func (w *BatchWriter) fail(err error) {
	w.err = err
	w.logger.Error("batch write failed, discarding remaining lines",
		slog.String("path", w.sink.Path()),
		slog.String("error", err.Error()))
}
