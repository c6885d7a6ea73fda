package breaker

import "sync"

// Registry holds one breaker per downstream dependency, addressed by a stable
// name. A breaker is created on first lookup and reused for the process
// lifetime; failure of one dependency never opens another's circuit.
type Registry struct {
	mu        sync.Mutex
	breakers  map[string]*Breaker
	defaults  Config
	overrides map[string]Config
}

// NewRegistry creates a Registry whose breakers inherit defaults unless a
// per-name override was registered.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		breakers:  make(map[string]*Breaker),
		defaults:  defaults,
		overrides: make(map[string]Config),
	}
}

// Configure sets per-dependency parameters. It has no effect on a breaker
// that was already created.
func (r *Registry) Configure(name string, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = cfg
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	cfg := r.defaults
	if override, ok := r.overrides[name]; ok {
		if override.FailureThreshold > 0 {
			cfg.FailureThreshold = override.FailureThreshold
		}
		if override.RecoveryTimeout > 0 {
			cfg.RecoveryTimeout = override.RecoveryTimeout
		}
	}
	cfg.Name = name
	b := New(cfg)
	r.breakers[name] = b
	return b
}

// Snapshots returns the current state of every registered breaker.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.GetSnapshot())
	}
	return out
}
