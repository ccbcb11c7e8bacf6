// Package logging sets up structured logging for the launcher core.
//
// Records are handed to a bounded queue and written by a single goroutine, so
// background checks never block on a slow terminal or log file.
package logging

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize matches the depth of the launcher's historical log queue.
const DefaultQueueSize = 128

type entry struct {
	h slog.Handler
	r slog.Record
}

type queue struct {
	ch      chan entry
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	done    chan struct{}
}

// AsyncHandler is a slog.Handler that writes through a bounded queue.
// A full queue drops the record and counts it.
type AsyncHandler struct {
	inner slog.Handler
	q     *queue
}

// NewAsyncHandler wraps inner with a queue of the given size.
func NewAsyncHandler(inner slog.Handler, size int) *AsyncHandler {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &queue{
		ch:   make(chan entry, size),
		done: make(chan struct{}),
	}
	go q.run()
	return &AsyncHandler{inner: inner, q: q}
}

func (q *queue) run() {
	defer close(q.done)
	for e := range q.ch {
		_ = e.h.Handle(context.Background(), e.r)
	}
}

// Enabled implements slog.Handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *AsyncHandler) Handle(_ context.Context, r slog.Record) error {
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()

	if h.q.closed {
		h.q.dropped.Add(1)
		return nil
	}

	select {
	case h.q.ch <- entry{h: h.inner, r: r.Clone()}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup implements slog.Handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// Dropped returns how many records were discarded because the queue was full.
func (h *AsyncHandler) Dropped() int64 {
	return h.q.dropped.Load()
}

// Close stops accepting records and waits until the queue is drained.
func (h *AsyncHandler) Close() {
	h.q.mu.Lock()
	if !h.q.closed {
		h.q.closed = true
		close(h.q.ch)
	}
	h.q.mu.Unlock()
	<-h.q.done
}

// Options configures New.
type Options struct {
	Debug     bool
	QueueSize int
}

// New returns a text logger writing to w through an AsyncHandler.
// Call Close on the returned handler before exit to flush.
func New(w io.Writer, opts Options) (*slog.Logger, *AsyncHandler) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	h := NewAsyncHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), opts.QueueSize)
	return slog.New(h), h
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
