package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

// Connection states, in lifecycle order.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	maxReconnectAttempts = 5
	baseBackoff          = 1000 * time.Millisecond
	maxBackoff           = 10000 * time.Millisecond

	// connectionLostMessage is the terminal error surfaced once all
	// reconnect attempts are spent.
	connectionLostMessage = "Connection lost"
)

// backoffDelay returns the wait before reconnect attempt n (0-based):
// 1s, 2s, 4s, 8s, then capped at 10s.
func backoffDelay(attempt int) time.Duration {
	d := baseBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// DialFunc opens one event stream. The returned channel must close when the
// stream ends; a non-nil error means the connection never opened.
type DialFunc func(ctx context.Context) (<-chan *model.Event, error)

// Runner drives a Tracker from a reconnecting event stream.
//
// Lifecycle: Idle → Connecting → Open, then on stream loss Reconnecting with
// exponential backoff. After maxReconnectAttempts consecutive failures the
// runner lands in Failed and records a terminal error on the tracker; a
// successful open resets the attempt counter.
type Runner struct {
	tracker *Tracker
	dial    DialFunc

	mu      sync.Mutex
	state   State
	attempt int
	cancel  context.CancelFunc
	done    chan struct{}

	// sleep waits out one backoff delay. Swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// notify is pulsed after every event or state change, coalescing.
	notify chan struct{}
}

// NewRunner returns an idle runner feeding tracker from dial.
func NewRunner(tracker *Tracker, dial DialFunc) *Runner {
	return &Runner{
		tracker: tracker,
		dial:    dial,
		state:   StateIdle,
		sleep:   sleepContext,
		notify:  make(chan struct{}, 1),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Start begins streaming in a background goroutine. It is a no-op if the
// runner is already running.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.attempt = 0
	done := r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.run(ctx)
	}()
}

func (r *Runner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		r.setState(StateConnecting)

		events, err := r.dial(ctx)
		if err != nil {
			slog.Warn("stream connect failed", "attempt", r.Attempt(), "error", err)
			if !r.scheduleReconnect(ctx) {
				return
			}
			continue
		}

		r.mu.Lock()
		r.attempt = 0
		r.mu.Unlock()
		r.setState(StateOpen)

		for evt := range events {
			r.tracker.Apply(evt)
			r.pulse()
		}
		if ctx.Err() != nil {
			return
		}

		slog.Warn("stream closed, reconnecting")
		if !r.scheduleReconnect(ctx) {
			return
		}
	}
}

// scheduleReconnect waits out the backoff for the next attempt. It returns
// false when the attempt budget is spent or ctx is canceled, marking the
// runner Failed in the former case.
func (r *Runner) scheduleReconnect(ctx context.Context) bool {
	r.mu.Lock()
	attempt := r.attempt
	r.attempt++
	r.mu.Unlock()

	if attempt >= maxReconnectAttempts {
		r.setState(StateFailed)
		r.tracker.SetError(connectionLostMessage)
		r.pulse()
		return false
	}

	r.setState(StateReconnecting)
	if err := r.sleep(ctx, backoffDelay(attempt)); err != nil {
		return false
	}
	return true
}

// Stop cancels the stream, waits for the run loop to exit, and resets the
// tracker. The runner returns to Idle and can be started again.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	r.tracker.Reset()
	r.setState(StateIdle)
}

// State returns the current connection state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Attempt returns the current reconnect attempt count.
func (r *Runner) Attempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

// Updates is pulsed (coalescing) after every received event or state change.
func (r *Runner) Updates() <-chan struct{} {
	return r.notify
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.pulse()
}

func (r *Runner) pulse() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}
