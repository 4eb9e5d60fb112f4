package clients

import (
	"sync"
	"time"
)

// State is a circuit breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// CircuitBreakerConfig tunes a CircuitBreaker.
type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int

	// Timeout is how long the circuit stays open before trial requests.
	Timeout time.Duration

	// HalfOpenLimit caps concurrent trial requests; as many consecutive trial
	// successes close the circuit again.
	HalfOpenLimit int
}

// streak counts consecutive outcomes within one state.
type streak struct {
	failures  int
	successes int
	trials    int
}

// CircuitBreaker stops calling the Quotes Service after repeated failures.
//
//	closed    -> open       after MaxFailures consecutive failures
//	open      -> half-open  on the first Allow once Timeout has passed
//	half-open -> closed     after HalfOpenLimit consecutive successes
//	half-open -> open       on any failure
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	streak   streak
	openedAt time.Time
	notify   func(from, to State)
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange sets a callback run in its own goroutine on every
// transition.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	cb.notify = fn
	cb.mu.Unlock()
}

// Allow reports whether a request may go out. A granted request while
// half-open counts as a trial until its outcome is recorded.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.cooledDown() {
		cb.setState(StateHalfOpen)
	}

	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.streak.trials >= cb.cfg.HalfOpenLimit {
			return false
		}

		cb.streak.trials++

		return true
	default:
		return false
	}
}

// RecordSuccess records an answer below 500.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.record(true)
}

// RecordFailure records a transport error or a 5xx answer.
func (cb *CircuitBreaker) RecordFailure() {
	cb.record(false)
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if ok {
			cb.streak.failures = 0
			return
		}

		cb.streak.failures++
		if cb.streak.failures >= cb.cfg.MaxFailures {
			cb.setState(StateOpen)
		}

	case StateHalfOpen:
		cb.streak.trials = max(cb.streak.trials-1, 0)

		if !ok {
			cb.setState(StateOpen)
			return
		}

		cb.streak.successes++
		if cb.streak.successes >= cb.cfg.HalfOpenLimit {
			cb.setState(StateClosed)
		}

	case StateOpen:
		// A late failure from before the trip restarts the cool-down.
		if !ok {
			cb.openedAt = cb.now()
		}
	}
}

// State returns the current position without advancing an expired open
// circuit.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// RetryAfter is the remaining cool-down of an open circuit, or zero.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return 0
	}

	return max(cb.openedAt.Add(cb.cfg.Timeout).Sub(cb.now()), 0)
}

// cooledDown must be called with mu held.
func (cb *CircuitBreaker) cooledDown() bool {
	return !cb.now().Before(cb.openedAt.Add(cb.cfg.Timeout))
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(next State) {
	prev := cb.state
	if prev == next {
		return
	}

	cb.state = next
	cb.streak = streak{}

	if next == StateOpen {
		cb.openedAt = cb.now()
	}

	if fn := cb.notify; fn != nil {
		go fn(prev, next)
	}
}
