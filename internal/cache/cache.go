package cache

import (
	"context"
	"sync"
	"time"
)

// Cooldown suppresses repeated notifications for the same alert id.
type Cooldown interface {
	// Acquire reports true when id is not cooling down and starts a new cooldown of ttl.
	Acquire(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// ResolvedSet tracks alert ids an operator marked as resolved.
type ResolvedSet interface {
	Resolve(ctx context.Context, ids ...string) error
	Reopen(ctx context.Context, ids ...string) error
	Resolved(ctx context.Context) (map[string]bool, error)
}

// Memory is a process-local Cooldown and ResolvedSet.
type Memory struct {
	mu       sync.Mutex
	until    map[string]time.Time
	resolved map[string]bool
	now      func() time.Time
}

// NewMemory constructs an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		until:    make(map[string]time.Time),
		resolved: make(map[string]bool),
		now:      time.Now,
	}
}

// Acquire implements Cooldown.
func (m *Memory) Acquire(_ context.Context, id string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.until[id]; ok && now.Before(until) {
		return false, nil
	}
	if ttl > 0 {
		m.until[id] = now.Add(ttl)
	}
	return true, nil
}

// Resolve implements ResolvedSet.
func (m *Memory) Resolve(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.resolved[id] = true
	}
	return nil
}

// Reopen implements ResolvedSet.
func (m *Memory) Reopen(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.resolved, id)
	}
	return nil
}

// Resolved implements ResolvedSet.
func (m *Memory) Resolved(context.Context) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.resolved))
	for id := range m.resolved {
		out[id] = true
	}
	return out, nil
}

var (
	_ Cooldown    = (*Memory)(nil)
	_ ResolvedSet = (*Memory)(nil)
)
