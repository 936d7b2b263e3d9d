package harp

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrSinkFull is returned by AsyncSink.Emit when the queue has no room.
var ErrSinkFull = errors.New("harp: event queue full")

// ErrSinkClosed is returned by AsyncSink.Emit after Close.
var ErrSinkClosed = errors.New("harp: event sink closed")

// AsyncSink hands events to another sink from its own goroutine, so a slow
// consumer (a stalled broker) never holds up Tick. Events that do not fit in
// the queue are dropped and counted.
type AsyncSink struct {
	next   EventSink
	queue  chan Event
	done   chan struct{}
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewAsyncSink starts a forwarder with room for size queued events.
// A nil logger means slog.Default().
func NewAsyncSink(next EventSink, size int, logger *slog.Logger) *AsyncSink {
	if logger == nil {
		logger = slog.Default()
	}
	a := &AsyncSink{
		next:   next,
		queue:  make(chan Event, size),
		done:   make(chan struct{}),
		logger: logger,
	}
	go a.run()
	return a
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for e := range a.queue {
		if err := a.next.Emit(e); err != nil {
			a.logger.Warn("event sink failed", "event", e.Type, "string", e.String, "err", err)
		}
	}
}

// Emit queues the event without blocking.
func (a *AsyncSink) Emit(e Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrSinkClosed
	}
	select {
	case a.queue <- e:
		return nil
	default:
		a.dropped++
		return ErrSinkFull
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (a *AsyncSink) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Close stops accepting events and waits until every queued event has been
// handed to the next sink. Safe to call more than once.
func (a *AsyncSink) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
	return nil
}
