package supplicant

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited indicates a restart or exec was refused by the token
// bucket guarding it.
var ErrRateLimited = errors.New("supplicant: rate limited")

// limiter is a token-bucket guard for restart/exec attempts. The shape
// (interval + burst, reset on sustained quiet) is adapted from the
// teacher's general approach to guarded retries: gobgp/dampening.go
// implements an exponential/threshold pattern for route-flap damping,
// the closest teacher-adjacent analogue for "guarded state with a reset
// hook", even though the gobgp package itself is dropped (see DESIGN.md).
// spec.md is explicit about interval+burst semantics here, so a plain
// token bucket is used instead of gobgp's decay curve.
//
// Policy (spec.md §4.2): no more than 2 restarts within 10s with a 200ms
// grace between them, and no more than 3 restarts within any 60s window
// (a 10s cooldown is imposed once the 60s budget is exhausted).
type limiter struct {
	mu sync.Mutex

	shortWindow   time.Duration
	shortBurst    int
	shortGrace    time.Duration
	longWindow    time.Duration
	longBurst     int
	longCooldown  time.Duration

	recent    []time.Time
	lastEvent time.Time
	cooldownUntil time.Time

	now func() time.Time
}

// newLimiter builds a limiter with spec.md's documented defaults.
func newLimiter() *limiter {
	return &limiter{
		shortWindow:  10 * time.Second,
		shortBurst:   2,
		shortGrace:   200 * time.Millisecond,
		longWindow:   60 * time.Second,
		longBurst:    3,
		longCooldown: 10 * time.Second,
		now:          time.Now,
	}
}

// Allow reports whether another restart/exec attempt may proceed now,
// recording the attempt if so.
func (l *limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Before(l.cooldownUntil) {
		return false
	}

	if !l.lastEvent.IsZero() && now.Sub(l.lastEvent) < l.shortGrace {
		return false
	}

	l.recent = pruneBefore(l.recent, now.Add(-l.longWindow))

	shortCount := 0
	for _, t := range l.recent {
		if now.Sub(t) < l.shortWindow {
			shortCount++
		}
	}
	if shortCount >= l.shortBurst {
		return false
	}

	if len(l.recent) >= l.longBurst {
		l.cooldownUntil = now.Add(l.longCooldown)
		return false
	}

	l.recent = append(l.recent, now)
	l.lastEvent = now
	return true
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	out := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}
