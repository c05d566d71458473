package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HanTheDev/resumatch/internal/metrics"
)

// ErrBackendUnconfigured is returned in production when the counter backend
// is missing or failing and the in-memory fallback was not opted into.
var ErrBackendUnconfigured = errors.New("RATE_LIMIT_BACKEND_UNCONFIGURED")

// Config is a fixed window: at most MaxRequests per Window.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Counter is an external atomic counter. IncrWithExpire must increment key
// and set its expiry in one atomic round trip and return the new count.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Options struct {
	// Production makes the limiter fail closed when Counter is unusable.
	Production bool
	// AllowMemoryFallback permits the per-process counter in production.
	AllowMemoryFallback bool
	Logger              logrus.FieldLogger
}

// RateLimiter counts requests per identifier in fixed windows.
type RateLimiter struct {
	counter Counter
	opts    Options
	memory  *memoryWindows
	now     func() time.Time
}

// NewRateLimiter builds a limiter. counter may be nil when no backend is
// configured.
func NewRateLimiter(counter Counter, opts Options) *RateLimiter {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &RateLimiter{
		counter: counter,
		opts:    opts,
		memory:  newMemoryWindows(),
		now:     time.Now,
	}
}

// Check counts one request for identifier and reports whether it fits.
func (rl *RateLimiter) Check(ctx context.Context, identifier string, cfg Config) (Result, error) {
	if cfg.Window <= 0 || cfg.MaxRequests <= 0 {
		return Result{}, fmt.Errorf("ratelimit: invalid config %+v", cfg)
	}
	now := rl.now()

	if rl.counter != nil {
		res, err := rl.checkCounter(ctx, identifier, cfg, now)
		if err == nil {
			return res, nil
		}
		rl.opts.Logger.WithError(err).WithField("identifier", identifier).
			Warn("rate limit counter failed, considering in-memory fallback")
	}

	if rl.opts.Production && !rl.opts.AllowMemoryFallback {
		return Result{}, ErrBackendUnconfigured
	}

	metrics.RateLimitFallback.Inc()
	return rl.memory.check(identifier, cfg, now), nil
}

func (rl *RateLimiter) checkCounter(ctx context.Context, identifier string, cfg Config, now time.Time) (Result, error) {
	windowMs := cfg.Window.Milliseconds()
	nowMs := now.UnixMilli()
	key := fmt.Sprintf("rate_limit:%s:%d", identifier, nowMs/windowMs)

	count, err := rl.counter.IncrWithExpire(ctx, key, windowTTL(cfg.Window))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:   count <= int64(cfg.MaxRequests),
		Remaining: max(0, cfg.MaxRequests-int(count)),
		ResetIn:   time.Duration(windowMs-nowMs%windowMs) * time.Millisecond,
	}, nil
}

// windowTTL rounds the window up to whole seconds for EXPIRE.
func windowTTL(window time.Duration) time.Duration {
	secs := (window + time.Second - 1) / time.Second
	return secs * time.Second
}
