// ABOUTME: Per-identity send pacer enforcing a randomized cool-down after posts.
// ABOUTME: Advisory gate the orchestrator waits on; it never rejects a request.
package pacing

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Default bounds of the randomized post-send cool-down.
const (
	DefaultMinDelay = 1 * time.Second
	DefaultMaxDelay = 5 * time.Second
)

// Decision is the result of a CanSend check.
type Decision struct {
	Allowed bool
	Wait    time.Duration
}

// Status describes one identity's pacing state for the admin surface.
type Status struct {
	Exists      bool
	NextAllowed time.Time
	Delay       time.Duration
	Wait        time.Duration
}

type entry struct {
	nextAllowed time.Time
	delay       time.Duration
}

// Pacer tracks the earliest allowed send time per identity key.
// Safe for concurrent use. The gate is per-identity; different identities
// never serialize against each other.
type Pacer struct {
	mu       sync.Mutex
	entries  map[string]entry
	minDelay time.Duration
	maxDelay time.Duration
	now      func() time.Time
	randInt  func(n int) int
}

// NewPacer creates a pacer with the default 1-5 second cool-down range.
func NewPacer() *Pacer {
	return &Pacer{
		entries:  make(map[string]entry),
		minDelay: DefaultMinDelay,
		maxDelay: DefaultMaxDelay,
		now:      time.Now,
		randInt:  rand.IntN,
	}
}

// SetDelayRange overrides the cool-down bounds. Values at or below zero and
// inverted ranges are ignored.
func (p *Pacer) SetDelayRange(min, max time.Duration) {
	if min <= 0 || max < min {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minDelay = min
	p.maxDelay = max
}

// CanSend reports whether key may post now, and if not, how long to wait.
// Unknown identities are always allowed.
func (p *Pacer) CanSend(key string) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return Decision{Allowed: true}
	}
	wait := e.nextAllowed.Sub(p.now())
	if wait <= 0 {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Wait: wait}
}

// NextDelay draws a cool-down uniformly from the configured closed interval,
// in whole seconds.
func (p *Pacer) NextDelay() time.Duration {
	p.mu.Lock()
	minSec := int(p.minDelay / time.Second)
	maxSec := int(p.maxDelay / time.Second)
	p.mu.Unlock()

	if maxSec <= minSec {
		return time.Duration(minSec) * time.Second
	}
	return time.Duration(minSec+p.randInt(maxSec-minSec+1)) * time.Second
}

// RecordSend gates key until now plus delay. Called only after a successful
// post; failed attempts never advance the gate.
func (p *Pacer) RecordSend(key string, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = entry{
		nextAllowed: p.now().Add(delay),
		delay:       delay,
	}
}

// Clear removes the pacing state for key, reporting whether any existed.
func (p *Pacer) Clear(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[key]
	delete(p.entries, key)
	return ok
}

// Status returns the pacing state for one identity.
func (p *Pacer) Status(key string) Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return Status{Exists: false}
	}
	wait := e.nextAllowed.Sub(p.now())
	if wait < 0 {
		wait = 0
	}
	return Status{
		Exists:      true,
		NextAllowed: e.nextAllowed,
		Delay:       e.delay,
		Wait:        wait,
	}
}
