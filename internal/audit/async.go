package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull      = errors.New("audit queue is full")
	ErrRecorderClosed = errors.New("audit recorder is closed")
)

// AsyncRecorder queues entries and persists them from a single background
// worker, so callers never wait on the audit store.
type AsyncRecorder struct {
	next    Recorder
	queue   chan Entry
	logger  *slog.Logger
	metrics *Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type Option func(*AsyncRecorder)

func WithLogger(logger *slog.Logger) Option {
	return func(a *AsyncRecorder) {
		a.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *AsyncRecorder) {
		a.metrics = m
	}
}

// WithTimeout bounds each persist call made by the worker.
func WithTimeout(d time.Duration) Option {
	return func(a *AsyncRecorder) {
		a.timeout = d
	}
}

// NewAsyncRecorder starts the worker. Call Close to drain it.
func NewAsyncRecorder(next Recorder, size int, opts ...Option) *AsyncRecorder {
	if size <= 0 {
		size = 1
	}
	a := &AsyncRecorder{
		next:    next,
		queue:   make(chan Entry, size),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

// Record stamps the entry and enqueues it without blocking.
func (a *AsyncRecorder) Record(_ context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.metrics.dropped()
		return ErrRecorderClosed
	}

	select {
	case a.queue <- e:
		a.metrics.depth(len(a.queue))
		return nil
	default:
		a.metrics.dropped()
		return ErrQueueFull
	}
}

func (a *AsyncRecorder) run() {
	defer close(a.done)
	for e := range a.queue {
		a.metrics.depth(len(a.queue))
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Record(ctx, e)
		cancel()
		if err != nil {
			a.metrics.persistFailed()
			a.logger.Error("audit entry not persisted",
				"error", err,
				"action", e.Action,
				"entity_type", e.EntityType,
				"entity_id", e.EntityID,
			)
		}
	}
}

// Close stops accepting entries and waits until the queue is drained or ctx ends.
func (a *AsyncRecorder) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
