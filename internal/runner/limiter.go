package runner

import (
	"context"
	"sync"
)

// ProviderLimiter bounds how many executions may hold a provider at once.
// Providers without an explicit limit get the default capacity. A limit of
// zero or less means unlimited.
type ProviderLimiter struct {
	defaultLimit int
	limits       map[string]int
	sems         map[string]chan struct{}
	mu           sync.Mutex
}

// NewProviderLimiter creates a limiter with a default capacity and
// per-provider overrides.
func NewProviderLimiter(defaultLimit int, overrides map[string]int) *ProviderLimiter {
	limits := make(map[string]int, len(overrides))
	for name, n := range overrides {
		limits[name] = n
	}
	return &ProviderLimiter{
		defaultLimit: defaultLimit,
		limits:       limits,
		sems:         make(map[string]chan struct{}),
	}
}

func (pl *ProviderLimiter) sem(name string) chan struct{} {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if sem, ok := pl.sems[name]; ok {
		return sem
	}
	limit := pl.defaultLimit
	if n, ok := pl.limits[name]; ok {
		limit = n
	}
	if limit <= 0 {
		pl.sems[name] = nil
		return nil
	}
	sem := make(chan struct{}, limit)
	pl.sems[name] = sem
	return sem
}

// Acquire blocks until a slot for the provider is free or ctx is done.
func (pl *ProviderLimiter) Acquire(ctx context.Context, name string) error {
	sem := pl.sem(name)
	if sem == nil {
		return nil
	}
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot for the provider. Must be called once per
// successful Acquire.
func (pl *ProviderLimiter) Release(name string) {
	if sem := pl.sem(name); sem != nil {
		<-sem
	}
}
