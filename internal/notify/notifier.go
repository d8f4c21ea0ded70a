package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval bounds how long the loop sleeps when idle.
const DefaultPollInterval = 200 * time.Millisecond

// ErrAlreadyRunning is returned by Run when the loop is already active.
var ErrAlreadyRunning = errors.New("notifier already running")

// Handler consumes one event.
type Handler[T any] func(T) error

// Option configures a Notifier.
type Option[T any] func(*Notifier[T])

// WithPollInterval sets the idle poll interval.
func WithPollInterval[T any](d time.Duration) Option[T] {
	return func(n *Notifier[T]) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithErrorHandler receives handler errors and recovered panics. The
// default logs them with slog.
func WithErrorHandler[T any](fn func(error)) Option[T] {
	return func(n *Notifier[T]) {
		if fn != nil {
			n.onError = fn
		}
	}
}

type envelope[T any] struct {
	value T
	stop  bool
}

// Notifier delivers events to a single handler, one at a time, in the order
// they were submitted.
//
// Submit may be called from any goroutine and never blocks. Delivery
// happens on the goroutine running Run, so the handler never runs
// concurrently with itself.
type Notifier[T any] struct {
	handler  Handler[T]
	onError  func(error)
	interval time.Duration

	mu      sync.Mutex
	pending []envelope[T]
	stopped bool

	wake    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// New creates a Notifier that delivers to handler.
func New[T any](handler Handler[T], opts ...Option[T]) *Notifier[T] {
	n := &Notifier[T]{
		handler:  handler,
		interval: DefaultPollInterval,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		onError: func(err error) {
			slog.Default().Error("event handler failed", "error", err)
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Submit enqueues an event. It reports false when the notifier has been
// stopped and the event was dropped.
func (n *Notifier[T]) Submit(event T) bool {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return false
	}
	n.pending = append(n.pending, envelope[T]{value: event})
	n.mu.Unlock()

	n.signal()
	return true
}

// Stop asks the loop to exit once every event submitted before Stop has
// been delivered. Later Submit calls are rejected. Stop does not wait; use
// Done for that.
func (n *Notifier[T]) Stop() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	n.stopped = true
	n.pending = append(n.pending, envelope[T]{stop: true})
	n.mu.Unlock()

	n.signal()
}

// Pending returns the number of undelivered events.
func (n *Notifier[T]) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for _, env := range n.pending {
		if !env.stop {
			count++
		}
	}
	return count
}

// Done is closed when Run returns.
func (n *Notifier[T]) Done() <-chan struct{} {
	return n.done
}

// Start runs the delivery loop in its own goroutine.
func (n *Notifier[T]) Start(ctx context.Context) {
	go func() {
		if err := n.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrAlreadyRunning) {
			n.onError(err)
		}
	}()
}

// Run delivers events until Stop's sentinel is reached or ctx is done.
// It returns nil after a Stop and ctx.Err() after cancellation.
func (n *Notifier[T]) Run(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(n.done)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			env, ok := n.next()
			if !ok {
				break
			}
			if env.stop {
				return nil
			}
			n.deliver(env.value)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.wake:
		case <-ticker.C:
		}
	}
}

func (n *Notifier[T]) next() (envelope[T], bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.pending) == 0 {
		return envelope[T]{}, false
	}
	env := n.pending[0]
	n.pending[0] = envelope[T]{}
	n.pending = n.pending[1:]
	return env, true
}

func (n *Notifier[T]) deliver(event T) {
	defer func() {
		if r := recover(); r != nil {
			n.onError(fmt.Errorf("event handler panic: %v", r))
		}
	}()

	if n.handler == nil {
		return
	}
	if err := n.handler(event); err != nil {
		n.onError(err)
	}
}

func (n *Notifier[T]) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}
