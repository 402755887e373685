// Package resilience guards calls to upstream APIs (trackers, code hosts).
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the externally visible breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Breaker counts consecutive upstream failures. After maxFailures it opens
// and rejects calls for cooldown, then lets a single probe through.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
	children map[string]*Breaker
}

// For returns the breaker guarding one operation of the upstream, created on
// first use with the parent's settings. Operations trip independently, so a
// throttled search endpoint does not block commit listing.
func (b *Breaker) For(op string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.children[op]; ok {
		return c
	}
	if b.children == nil {
		b.children = make(map[string]*Breaker)
	}
	c := NewBreaker(b.name+"."+op, b.maxFailures, b.cooldown)
	c.now = b.now
	b.children[op] = c
	return c
}

// permanentError marks a failure the upstream answered deliberately, such as
// a 404 or 403. It says nothing about upstream health.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do returns it without counting a failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Transient reports whether an HTTP status signals an upstream outage or
// throttling that should count toward opening the breaker.
func Transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// NewBreaker returns a closed breaker. maxFailures < 1 is treated as 1.
func NewBreaker(name string, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Name identifies the guarded upstream in logs.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, promoting open to half-open once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Do runs fn unless the breaker is open. Cancellation of ctx and errors
// wrapped with Permanent are not counted as upstream failures.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.allow() {
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}

	err := fn(ctx)

	var perm *permanentError
	if errors.As(err, &perm) {
		err = perm.err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	switch {
	case err == nil || perm != nil:
		if b.state != StateClosed {
			slog.Info("circuit breaker closed", "upstream", b.name)
		}
		b.failures = 0
		b.state = StateClosed
	case ctx.Err() != nil:
		// caller gave up; upstream health unknown
	default:
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			if b.state != StateOpen {
				slog.Warn("circuit breaker opened", "upstream", b.name, "failures", b.failures)
			}
			b.state = StateOpen
			b.openedAt = b.now()
		}
	}
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return true
}

// Defaults used by FromConfig.
const (
	DefaultMaxFailures = 5
	DefaultCooldown    = 30 * time.Second
)

// FromConfig builds a breaker from an adapter config map, reading
// "breaker_max_failures" (int) and "breaker_cooldown" (Go duration).
// Missing or malformed values fall back to the defaults.
func FromConfig(name string, cfg map[string]string) *Breaker {
	maxFailures := DefaultMaxFailures
	if v, err := strconv.Atoi(cfg["breaker_max_failures"]); err == nil && v > 0 {
		maxFailures = v
	}
	cooldown := DefaultCooldown
	if v, err := time.ParseDuration(cfg["breaker_cooldown"]); err == nil && v > 0 {
		cooldown = v
	}
	return NewBreaker(name, maxFailures, cooldown)
}
