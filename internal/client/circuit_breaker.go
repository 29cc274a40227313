package client

import (
	"sync"
	"time"

	"mockexam-registration/internal/monitoring"
)

type State int

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
		return "half_open"
	case StateOpen:
		return "open"
	}
	return "unknown"
}

// CircuitBreaker guards one logical endpoint. One shared instance serves every
// poller in the process, so a single poller's discovery of an outage benefits all.
//
// CLOSED: requests pass; consecutive failures up to the threshold trip it OPEN.
// OPEN: requests are short-circuited until the recovery timeout elapses.
// HALF_OPEN: exactly one probe is let through; its outcome decides the next state.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mutex    sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// Allow reports whether a request may go out. In HALF_OPEN only the single probe
// passes; everything else is short-circuited to the fallback without touching the network.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().After(cb.openedAt.Add(cb.recoveryTimeout)) {
			cb.transition(StateHalfOpen)
			cb.probing = true
			return true
		}
		return false
	case StateHalfOpen:
		if !cb.probing {
			cb.probing = true
			return true
		}
		return false
	}
	return false
}

// RecordSuccess closes the breaker and resets the failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	cb.probing = false
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
}

// RecordFailure counts one failed logical fetch (after its retries are exhausted).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateHalfOpen {
		// failed probe reopens with a fresh timer
		cb.probing = false
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
		return
	}

	cb.failures++
	if cb.state == StateClosed && cb.failures >= cb.failureThreshold {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

// State 回傳目前狀態，供測試與監控使用
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// transition assumes the mutex is held.
func (cb *CircuitBreaker) transition(next State) {
	cb.state = next
	monitoring.TrackBreakerTransition(cb.name, next.String())
}
