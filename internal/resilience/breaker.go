// Package resilience keeps a failing storage dependency from being hammered
// while it recovers.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker is rejecting calls.
var ErrBreakerOpen = errors.New("breaker open")

// Breaker is a consecutive-failure circuit breaker. The quota service wraps
// its ledger reads in one so a struggling database turns into fast
// rejections instead of a pile of blocked status requests. After maxFailures
// failures in a row, calls are rejected until cooldown has passed; the first
// successful call after that closes the breaker.
type Breaker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration
	failures    int
	openUntil   time.Time
	clock       func() time.Time // swapped in tests
}

// NewBreaker creates a breaker that opens after maxFailures consecutive
// failures and rejects calls for cooldown before letting one through again.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{maxFailures: maxFailures, cooldown: cooldown, clock: time.Now}
}

// Do runs fn unless the breaker is open, and feeds the outcome back into the
// failure streak. The error from fn is returned as is.
func (b *Breaker) Do(fn func() error) error {
	if b.Open() {
		return ErrBreakerOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.failures >= b.maxFailures {
			b.openUntil = b.clock().Add(b.cooldown)
		}
		return err
	}

	b.failures = 0
	b.openUntil = time.Time{}
	return nil
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.maxFailures && b.clock().Before(b.openUntil)
}
