package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Adaptive throttling parameters.
const (
	WindowSize         = 200  // trailing attempts tracked for the error rate
	EscalateThreshold  = 0.05 // error rate entering conservative mode
	RecoverThreshold   = 0.02 // error rate leaving conservative mode
	ConservativeFactor = 4    // interval multiplier while conservative
	MinSamples         = 20   // observations needed before escalating
)

// Limiter enforces a minimum interval between outbound fetches and
// escalates to a conservative interval when the observed error rate
// crosses a threshold. Recovery uses a lower threshold so the limiter
// does not oscillate around the boundary.
type Limiter struct {
	mu           sync.Mutex
	base         time.Duration
	bucket       *rate.Limiter
	conservative bool

	// Trailing outcome ring: true marks a failed attempt.
	window [WindowSize]bool
	next   int
	filled int
	errors int
}

// New creates a limiter with the given base inter-request interval.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = time.Second
	}
	return &Limiter{
		base:   interval,
		bucket: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Acquire blocks until the next request slot or context cancellation.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Observe records the outcome of one fetch attempt and re-evaluates the
// throttling mode.
func (l *Limiter) Observe(failed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(failed)
	l.adjustLocked(false)
}

// ObserveRateLimited records a provider rate-limit signal. It always counts
// as an error and escalates immediately rather than waiting for the window.
func (l *Limiter) ObserveRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(true)
	l.adjustLocked(true)
}

func (l *Limiter) record(failed bool) {
	if l.filled == WindowSize {
		if l.window[l.next] {
			l.errors--
		}
	} else {
		l.filled++
	}
	l.window[l.next] = failed
	if failed {
		l.errors++
	}
	l.next = (l.next + 1) % WindowSize
}

func (l *Limiter) adjustLocked(force bool) {
	errRate := l.errorRateLocked()
	switch {
	case !l.conservative && (force || (l.filled >= MinSamples && errRate > EscalateThreshold)):
		l.conservative = true
		l.bucket.SetLimit(limitFor(l.base * ConservativeFactor))
		log.Warn().
			Float64("error_rate", errRate).
			Dur("interval", l.base*ConservativeFactor).
			Msg("rate limiter entering conservative mode")
	case l.conservative && !force && errRate < RecoverThreshold:
		l.conservative = false
		l.bucket.SetLimit(limitFor(l.base))
		log.Info().
			Float64("error_rate", errRate).
			Dur("interval", l.base).
			Msg("rate limiter recovered to base interval")
	}
}

func limitFor(interval time.Duration) rate.Limit {
	return rate.Every(interval)
}

// ErrorRate returns the error fraction over the trailing window.
func (l *Limiter) ErrorRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorRateLocked()
}

func (l *Limiter) errorRateLocked() float64 {
	if l.filled == 0 {
		return 0
	}
	return float64(l.errors) / float64(l.filled)
}

// Conservative reports whether the enlarged interval is active.
func (l *Limiter) Conservative() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conservative
}

// Interval returns the currently effective inter-request interval.
func (l *Limiter) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conservative {
		return l.base * ConservativeFactor
	}
	return l.base
}
