package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type ServiceStatus string

const (
	StatusOK       ServiceStatus = "ok"
	StatusDegraded ServiceStatus = "degraded"
	StatusMissing  ServiceStatus = "missing"
)

// ServiceCheck is one dependency's entry in the health report.
type ServiceCheck struct {
	Status    ServiceStatus `json:"status"`
	LatencyMs *int64        `json:"latencyMs,omitempty"`
	Details   string        `json:"details,omitempty"`
}

// Probe reports the state of one dependency.
type Probe func(ctx context.Context) ServiceCheck

// Pinger is implemented by the document store, the rate limit counter and
// the model client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingProbe is ok when p answers a ping and degraded otherwise. A nil p is
// reported as missing.
func PingProbe(p Pinger, failure string) Probe {
	return func(ctx context.Context) ServiceCheck {
		if p == nil {
			return ServiceCheck{Status: StatusMissing}
		}
		start := time.Now()
		err := p.Ping(ctx)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			return ServiceCheck{Status: StatusDegraded, LatencyMs: &latency, Details: failure}
		}
		return ServiceCheck{Status: StatusOK, LatencyMs: &latency}
	}
}

// StaticProbe always reports s.
func StaticProbe(s ServiceStatus, details string) Probe {
	return func(context.Context) ServiceCheck { return ServiceCheck{Status: s, Details: details} }
}

const probeTimeout = 2 * time.Second

// Health handles GET /health: 503 when a dependency is missing, 206 when
// one is degraded, 200 otherwise. Probes run concurrently, each bounded by
// probeTimeout.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var (
		mu       sync.Mutex
		services = make(map[string]ServiceCheck, len(h.probes))
		g        errgroup.Group
	)
	for name, probe := range h.probes {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			defer cancel()
			check := probe(ctx)

			mu.Lock()
			services[name] = check
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	degraded, missing := false, false
	for _, check := range services {
		switch check.Status {
		case StatusDegraded:
			degraded = true
		case StatusMissing:
			missing = true
		}
	}

	status, overall := http.StatusOK, "ok"
	switch {
	case missing:
		status, overall = http.StatusServiceUnavailable, "degraded"
	case degraded:
		status, overall = http.StatusPartialContent, "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
		"services":  services,
	})
}
