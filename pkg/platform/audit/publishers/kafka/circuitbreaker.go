package kafka

import (
	"sync"
	"time"
)

// CircuitBreaker stops produce attempts while the broker is unreachable.
// While open, events are dropped without contacting Kafka.
type CircuitBreaker struct {
	mu  sync.RWMutex
	now func() time.Time

	threshold int
	cooldown  time.Duration

	failures  int
	openUntil time.Time
	isOpen    bool
}

// NewCircuitBreaker opens after threshold consecutive failures and stays open
// for cooldown before letting a probe through.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		now:       time.Now,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Allow reports whether a produce attempt may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.RLock()
	if !cb.isOpen {
		cb.mu.RUnlock()
		return true
	}
	expired := cb.now().After(cb.openUntil)
	cb.mu.RUnlock()
	if !expired {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	// Re-check: another goroutine may have already half-opened.
	if cb.isOpen && cb.now().After(cb.openUntil) {
		cb.isOpen = false
		cb.failures = cb.threshold - 1
	}
	return !cb.isOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.isOpen = false
}

// RecordFailure returns true when this failure opened the circuit.
func (cb *CircuitBreaker) RecordFailure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	if !cb.isOpen && cb.failures >= cb.threshold {
		cb.isOpen = true
		cb.openUntil = cb.now().Add(cb.cooldown)
		return true
	}
	return false
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.isOpen
}
