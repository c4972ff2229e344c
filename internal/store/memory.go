// Package store provides the durable IntentStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"paybot/internal/domain"
)

// MemoryStore keeps intents in process memory. It backs tests and the
// "memory" store driver; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	intents map[string]*domain.PaymentIntent
	updates *keyedLocks
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intents: make(map[string]*domain.PaymentIntent),
		updates: newKeyedLocks(),
	}
}

func (m *MemoryStore) Create(_ context.Context, intent *domain.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.intents[intent.ID]; ok {
		return domain.ErrDuplicateID
	}
	m.intents[intent.ID] = intent.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.PaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	return intent.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, mutate func(*domain.PaymentIntent) error) (*domain.PaymentIntent, error) {
	// Per-id critical section: concurrent updates to the same intent
	// serialize here, different ids never contend.
	lock := m.updates.get(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	stored, ok := m.intents[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrIntentNotFound
	}

	next := stored.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.intents[id] = next
	m.mu.Unlock()
	return next.Clone(), nil
}

func (m *MemoryStore) ListByParty(_ context.Context, identity string) ([]domain.PaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.PaymentIntent
	for _, intent := range m.intents {
		if intent.IsParty(identity) {
			out = append(out, *intent.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
