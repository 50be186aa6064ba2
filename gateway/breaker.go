package gateway

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned without touching the network while the
// gateway is considered down.
var ErrBreakerOpen = errors.New("gateway circuit breaker is open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker shields the payment gateway from hammering while it is failing.
// After maxFailures consecutive errors calls fail fast until resetTimeout
// elapses; the next call then probes the gateway once.
type Breaker struct {
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
}

func NewBreaker(maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        breakerClosed,
	}
}

func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen {
		if time.Since(b.lastFailure) <= b.resetTimeout {
			return ErrBreakerOpen
		}
		b.state = breakerHalfOpen
		b.failures = 0
	}

	err := fn()
	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == breakerHalfOpen || b.failures >= b.maxFailures {
			b.state = breakerOpen
		}
		return err
	}

	b.state = breakerClosed
	b.failures = 0
	return nil
}
