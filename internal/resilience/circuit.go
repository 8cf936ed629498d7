package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit means the breaker refused to let a request reach the site.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker position. Its numeric value is exported as the
// breaker state gauge.
type State int

const (
	Closed State = iota
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

var stateNames = [...]string{Closed: "closed", Open: "open", HalfOpen: "half_open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Breaker implements a failure-ratio circuit breaker guarding the Frappe site.
// Outcomes are judged over a sliding window of the most recent calls. It never
// retries; callers see ErrOpenCircuit while the breaker is open, and while a
// half-open probe is still in flight.
type Breaker struct {
	mu           sync.Mutex
	state        State
	window       []bool
	next         int
	filled       int
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	probing      bool
	target       string
	logger       zerolog.Logger
}

// Snapshot is a point-in-time view of a Breaker.
type Snapshot struct {
	State    State
	Failures int
	Total    int
	RetryAt  time.Time
}

// NewBreaker constructs a breaker that opens when the failure ratio over the
// last 2*minRequests calls reaches failureRatio, once at least minRequests
// calls were observed.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	if failureRatio > 1 {
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		state:        Closed,
		window:       make([]bool, minRequests*2),
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		target:       "default",
		logger:       zerolog.Nop(),
	}
}

// Allow reports whether a request may go out. After the cool-off an open
// breaker lets exactly one probe through and turns half-open.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.openFor {
			return false
		}
		b.changeStateLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an allowed request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.changeStateLocked(ctx, Closed)
		} else {
			b.changeStateLocked(ctx, Open)
		}
		return
	}

	b.window[b.next] = !success
	b.next = (b.next + 1) % len(b.window)
	if b.filled < len(b.window) {
		b.filled++
	}
	if b.filled < b.minRequests {
		return
	}
	if float64(b.failuresLocked())/float64(b.filled) >= b.failureRatio {
		b.changeStateLocked(ctx, Open)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns the current state and window counts.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := Snapshot{State: b.state, Failures: b.failuresLocked(), Total: b.filled}
	if b.state == Open {
		snap.RetryAt = b.openedAt.Add(b.openFor)
	}
	return snap
}

func (b *Breaker) failuresLocked() int {
	n := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			n++
		}
	}
	return n
}

// WithTarget names the guarded dependency in metric labels and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if target = strings.TrimSpace(target); target != "" {
		b.target = target
	}
	BreakerState.WithLabelValues(b.target).Set(float64(b.state))
	return b
}

// WithLogger sets the fallback logger for transition events. A logger carried
// by the request context takes precedence.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

func (b *Breaker) changeStateLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	switch next {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	clear(b.window)
	b.next, b.filled = 0, 0

	BreakerState.WithLabelValues(b.target).Set(float64(next))
	BreakerTransitions.WithLabelValues(b.target, prev.String(), next.String()).Inc()
	if next == Open {
		BreakerOpenedTotal.WithLabelValues(b.target).Inc()
	}

	logger := b.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	evt := logger.Info().
		Str("target", b.target).
		Stringer("from_state", prev).
		Stringer("to_state", next)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}
