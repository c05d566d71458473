package cache

import (
	"math/rand/v2"
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLMap is an unbounded map whose entries live for a fixed TTL. Expired
// entries are hidden on read and swept opportunistically on write with
// probability SweepProbability, which avoids a background goroutine.
type TTLMap[V any] struct {
	mu               sync.Mutex
	ttl              time.Duration
	items            map[string]ttlEntry[V]
	SweepProbability float64

	now  func() time.Time
	roll func() float64
}

// NewTTLMap creates a map whose entries expire after ttl.
func NewTTLMap[V any](ttl time.Duration, sweepProbability float64) *TTLMap[V] {
	return &TTLMap[V]{
		ttl:              ttl,
		items:            make(map[string]ttlEntry[V]),
		SweepProbability: sweepProbability,
		now:              time.Now,
		roll:             rand.Float64,
	}
}

// Get returns the value and the time it was stored.
func (m *TTLMap[V]) Get(key string) (V, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	entry, ok := m.items[key]
	if !ok {
		return zero, time.Time{}, false
	}
	if m.expired(entry, m.now()) {
		delete(m.items, key)
		return zero, time.Time{}, false
	}
	return entry.value, entry.storedAt, true
}

// Set overwrites any previous value for key and returns the store time.
func (m *TTLMap[V]) Set(key string, value V) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.items[key] = ttlEntry[V]{value: value, storedAt: now}
	if m.roll() < m.SweepProbability {
		m.sweep(now)
	}
	return now
}

func (m *TTLMap[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Len counts stored entries, including expired ones not yet swept.
func (m *TTLMap[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *TTLMap[V]) sweep(now time.Time) {
	for k, entry := range m.items {
		if m.expired(entry, now) {
			delete(m.items, k)
		}
	}
}

func (m *TTLMap[V]) expired(entry ttlEntry[V], now time.Time) bool {
	return now.Sub(entry.storedAt) >= m.ttl
}
