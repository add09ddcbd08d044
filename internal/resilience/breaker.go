package resilience

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrOpen is returned while the breaker is rejecting all calls.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrTooManyProbes is returned in half-open state once the probe budget
	// is exhausted.
	ErrTooManyProbes = errors.New("circuit breaker probe limit reached")
)

// State is the circuit breaker state.
type State uint8

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config tunes a Breaker. Zero fields take defaults.
type Config struct {
	// FailureThreshold is the number of consecutive failures in closed
	// state before the breaker trips.
	FailureThreshold uint32
	// ResetTimeout is how long the breaker stays open before admitting
	// probe requests.
	ResetTimeout time.Duration
	// HalfOpenProbes is both the number of in-flight probes allowed in
	// half-open state and the consecutive successes needed to close.
	HalfOpenProbes uint32
	// Logger receives state transition events. Defaults to a nop logger.
	Logger *zap.Logger
}

// Breaker fails fast once a downstream dependency is consistently failing,
// then periodically probes it to detect recovery.
type Breaker struct {
	name string
	cfg  Config

	mu        sync.Mutex
	state     State
	failures  uint32
	probes    uint32
	successes uint32
	openedAt  time.Time
}

// New creates a breaker guarding the named dependency.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout == 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenProbes == 0 {
		cfg.HalfOpenProbes = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Breaker{name: name, cfg: cfg, state: StateClosed}
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// State reports the current state, applying the open→half-open timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	return b.state
}

// Execute runs fn if the breaker admits it. A panic inside fn is recorded
// as a failure and re-raised.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	if err := b.acquire(); err != nil {
		return nil, err
	}

	panicking := true
	defer func() {
		if panicking {
			b.release(false)
		}
	}()

	result, err := fn()
	panicking = false
	b.release(err == nil)
	return result, err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())

	switch b.state {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenProbes {
			return ErrTooManyProbes
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) release(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		if !success {
			b.transition(StateOpen)
			return
		}
		b.successes++
		if b.successes >= b.cfg.HalfOpenProbes {
			b.transition(StateClosed)
		}
	case StateOpen:
		// A call admitted before the trip finished; its outcome no
		// longer matters.
	}
}

// refresh promotes open to half-open once the reset timeout has elapsed.
// Caller must hold b.mu.
func (b *Breaker) refresh(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.transition(StateHalfOpen)
	}
}

// transition changes state and resets counters. Caller must hold b.mu.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures = 0
	b.probes = 0
	b.successes = 0
	if to == StateOpen {
		b.openedAt = time.Now()
	}

	b.cfg.Logger.Warn("Circuit breaker state change",
		zap.String("breaker", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}
