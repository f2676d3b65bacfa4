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

// ErrOpenCircuit is returned when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker.
type Settings struct {
	// Target names the guarded dependency in logs and metrics.
	Target string
	// MinRequests is the sample size before the failure ratio is evaluated.
	MinRequests int
	// FailureRatio opens the breaker once failures/total reaches it.
	FailureRatio float64
	// OpenFor is the cool-off before a half-open probe is let through.
	OpenFor time.Duration
	// IsFailure decides whether an error counts against the dependency.
	// Nil counts every non-nil error.
	IsFailure func(error) bool
	Metrics   *Metrics
	Logger    zerolog.Logger
}

// Breaker is a failure-ratio circuit breaker. While half-open exactly one
// probe is in flight; its outcome closes or re-opens the circuit.
type Breaker struct {
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	total    int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed breaker with defaults applied.
func NewBreaker(s Settings) *Breaker {
	if s.MinRequests <= 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio <= 0 || s.FailureRatio > 1 {
		s.FailureRatio = 0.5
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 10 * time.Second
	}
	s.Target = strings.TrimSpace(s.Target)
	if s.Target == "" {
		s.Target = "default"
	}
	b := &Breaker{settings: s, now: time.Now}
	s.Metrics.setState(s.Target, Closed)
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn unless the circuit is open and records its outcome. A panic in
// fn counts as a failure and is re-raised after the outcome is recorded.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) (err error) {
	if !b.allow(ctx) {
		b.settings.Metrics.rejected(b.settings.Target)
		return ErrOpenCircuit
	}
	completed := false
	defer func() {
		b.report(ctx, completed && !b.failed(err))
	}()
	err = fn(ctx)
	completed = true
	return err
}

func (b *Breaker) failed(err error) bool {
	if err == nil {
		return false
	}
	if b.settings.IsFailure == nil {
		return true
	}
	return b.settings.IsFailure(err)
}

func (b *Breaker) allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.settings.OpenFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
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

func (b *Breaker) report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.probing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	case Open:
		return
	}

	b.total++
	if !success {
		b.failures++
	}
	if b.total < b.settings.MinRequests {
		return
	}
	if float64(b.failures)/float64(b.total) >= b.settings.FailureRatio {
		b.transitionLocked(ctx, Open)
		return
	}
	// halve the window once it holds twice the sample size
	if b.total >= 2*b.settings.MinRequests {
		b.total /= 2
		b.failures /= 2
	}
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures, b.total = 0, 0
	if next == Open {
		b.openedAt = b.now()
	}
	b.settings.Metrics.transition(b.settings.Target, prev, next)

	evt := b.settings.Logger.Warn()
	if next == Closed {
		evt = b.settings.Logger.Info()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Str("target", b.settings.Target).
		Str("from_state", prev.String()).
		Str("to_state", next.String()).
		Msg("breaker transition")
}
