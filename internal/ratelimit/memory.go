package ratelimit

import (
	"math/rand/v2"
	"sync"
	"time"
)

// SweepProbability is the chance a fallback check also drops expired
// windows. Keeps memory bounded without a background goroutine.
const SweepProbability = 0.01

type memoryWindow struct {
	count   int
	resetAt time.Time
}

type memoryWindows struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	roll    func() float64
}

func newMemoryWindows() *memoryWindows {
	return &memoryWindows{
		windows: make(map[string]*memoryWindow),
		roll:    rand.Float64,
	}
}

// check keeps counting past the cap so over-limit pressure stays visible in
// the stored count; only the decision is capped.
func (m *memoryWindows) check(identifier string, cfg Config, now time.Time) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.roll() < SweepProbability {
		for id, w := range m.windows {
			if now.After(w.resetAt) {
				delete(m.windows, id)
			}
		}
	}

	w, ok := m.windows[identifier]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(cfg.Window)}
		m.windows[identifier] = w
	}
	w.count++

	return Result{
		Allowed:   w.count <= cfg.MaxRequests,
		Remaining: max(0, cfg.MaxRequests-w.count),
		ResetIn:   w.resetAt.Sub(now),
	}
}

func (m *memoryWindows) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
