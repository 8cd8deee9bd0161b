package circuit

import (
	"sync"
	"time"
)

const (
	DefaultThreshold = 3
	DefaultCooldown  = 10 * time.Minute
)

// Registry hands out one Breaker per provider name. It is owned by whoever
// wires the providers, so tests can build an isolated instance.
type Registry struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	breakers  map[string]*Breaker
}

func NewRegistry(threshold int, cooldown time.Duration) *Registry {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Registry{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		breakers:  make(map[string]*Breaker),
	}
}

// WithClock replaces the time source of every breaker created afterwards.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now != nil {
		r.now = now
	}
	return r
}

func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, r.threshold, r.cooldown)
	b.now = r.now
	r.breakers[name] = b
	return b
}

func (r *Registry) Allow(name string) bool { return r.Get(name).Allow() }

func (r *Registry) RecordSuccess(name string) { r.Get(name).RecordSuccess() }

func (r *Registry) RecordFailure(name string) { r.Get(name).RecordFailure() }

// Snapshot lists breaker states keyed by provider name.
func (r *Registry) Snapshot() map[string]State {
	r.mu.Lock()
	names := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		names = append(names, b)
	}
	r.mu.Unlock()
	out := make(map[string]State, len(names))
	for _, b := range names {
		out[b.Name()] = b.State()
	}
	return out
}
