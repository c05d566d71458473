package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLMap_GetSet(t *testing.T) {
	clock := newFakeClock()
	m := NewTTLMap[string](time.Minute, 0)
	m.now = clock.Now

	stored := m.Set("k", "v")
	got, at, ok := m.Get("k")
	if !ok || got != "v" {
		t.Fatalf("expected hit, got %q ok=%v", got, ok)
	}
	if !at.Equal(stored) {
		t.Errorf("expected stored-at %v, got %v", stored, at)
	}

	clock.Advance(time.Minute)
	if _, _, ok := m.Get("k"); ok {
		t.Error("expected miss after TTL")
	}
}

func TestTTLMap_SweepOnWrite(t *testing.T) {
	clock := newFakeClock()
	m := NewTTLMap[int](time.Minute, 0.5)
	m.now = clock.Now
	m.roll = func() float64 { return 0.9 }

	m.Set("a", 1)
	m.Set("b", 2)
	clock.Advance(2 * time.Minute)

	m.Set("c", 3)
	if m.Len() != 3 {
		t.Fatalf("expected no sweep above probability, len=%d", m.Len())
	}

	m.roll = func() float64 { return 0.1 }
	m.Set("d", 4)
	if m.Len() != 2 {
		t.Errorf("expected expired entries swept, len=%d", m.Len())
	}
}

func TestTTLMap_UnboundedCount(t *testing.T) {
	m := NewTTLMap[int](time.Hour, 0)
	for i := 0; i < 1000; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}
	if m.Len() != 1000 {
		t.Errorf("expected 1000 entries, got %d", m.Len())
	}
}
