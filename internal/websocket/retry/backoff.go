package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Delay computes how long to wait before a reconnection attempt
type Delay interface {
	// For returns the wait before attempt n, counting from 1.
	For(attempt int) time.Duration
}

// Randomized grows the delay geometrically from InitialDelay, moves it by up
// to JitterFactor of itself in either direction and caps it at MaxDelay. This
// is the schedule Socket.IO clients use between reconnection attempts.
type Randomized struct {
	config *Config

	mu   sync.Mutex
	rand *rand.Rand
}

func NewRandomized(config *Config) *Randomized {
	if config == nil {
		config = DefaultConfig()
	}
	_ = config.Validate()

	return &Randomized{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Randomized) For(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if r.config.JitterFactor > 0 {
		r.mu.Lock()
		deviation := r.rand.Float64() * r.config.JitterFactor * base
		up := r.rand.Intn(2) == 1
		r.mu.Unlock()

		if up {
			base += deviation
		} else {
			base -= deviation
		}
	}

	delay := time.Duration(math.Min(base, float64(r.config.MaxDelay)))
	if delay < 0 {
		return 0
	}
	return delay
}

// Fixed waits the same time before every attempt
type Fixed time.Duration

func (f Fixed) For(int) time.Duration {
	return time.Duration(f)
}

// Tracker counts the reconnection attempts of one outage against the policy.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	config  *Config
	delay   Delay
	attempt int
	started time.Time
}

// NewTracker creates a tracker for config. A nil delay uses Randomized.
func NewTracker(config *Config, delay Delay) *Tracker {
	if config == nil {
		config = DefaultConfig()
	}
	if delay == nil {
		delay = NewRandomized(config)
	}

	return &Tracker{
		config: config,
		delay:  delay,
	}
}

// Exhausted reports whether the policy forbids another attempt
func (t *Tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.config.Enabled {
		return true
	}
	if t.config.MaxAttempts > 0 && t.attempt >= t.config.MaxAttempts {
		return true
	}
	if t.config.MaxTotalTime > 0 && !t.started.IsZero() && time.Since(t.started) >= t.config.MaxTotalTime {
		return true
	}
	return false
}

// Next records a new attempt and returns its number and the wait before it
func (t *Tracker) Next() (int, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started.IsZero() {
		t.started = time.Now()
	}
	t.attempt++
	return t.attempt, t.delay.For(t.attempt)
}

// Reset starts a new outage
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attempt = 0
	t.started = time.Time{}
}

// Attempts returns the attempts made during the current outage
func (t *Tracker) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.attempt
}
