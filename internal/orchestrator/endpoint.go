package orchestrator

import (
	"context"
	"time"

	"github.com/HanTheDev/resumatch/internal/cache"
	"github.com/HanTheDev/resumatch/internal/db"
	"github.com/HanTheDev/resumatch/internal/generation"
	"github.com/HanTheDev/resumatch/internal/ratelimit"
)

// Endpoint is the fixed configuration of one generation route.
type Endpoint struct {
	Route string
	// RatePrefix and the user id form the rate limit identifier.
	RatePrefix string
	RateLimit  ratelimit.Config

	Timeout        time.Duration
	TimeoutMessage string
	TimeoutCode    string

	// FailureCode and FailurePrefix shape unclassified generation errors.
	FailureCode   string
	FailurePrefix string

	// Memory is the process-local tier. Nil disables it, which is what
	// routes whose output is a fresh render every time want.
	Memory *cache.LRU[any]
}

// Controls are the request fields that steer the lifecycle rather than the
// generation itself.
type Controls struct {
	IdempotencyKey  string
	ForceRegenerate bool
}

// Operation is one validated generation request.
type Operation interface {
	// Name scopes idempotency keys, e.g. "match" or "tailoredResume".
	Name() string
	Validate() error
	Controls() Controls
	// CacheKey must depend only on normalized inputs and discriminators.
	CacheKey() cache.Key
	Generate(ctx context.Context, g generation.Generator) (any, error)
}

// Stored is a persistent-tier hit, already normalized for the response.
type Stored struct {
	Result     any
	DocumentID string
}

// Persisted is implemented by operations backed by the document store.
// Lookup returns db.ErrNotFound on a miss.
type Persisted interface {
	Lookup(ctx context.Context, store db.Store, userID string) (*Stored, error)
	Save(ctx context.Context, store db.Store, userID string, result any) (string, error)
}

// Call is one invocation of an endpoint. DecodeErr reports a body that
// could not be decoded at all; Op may be nil in that case.
type Call struct {
	Op                Operation
	DecodeErr         error
	IdempotencyHeader string
}
