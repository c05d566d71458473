// Package orchestrator runs the shared lifecycle of every generation route:
// identity, rate limit, validation, idempotent replay, the memory and
// database tiers, deadline-bounded generation and the best-effort writes
// that follow it.
package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/HanTheDev/resumatch/internal/db"
	"github.com/HanTheDev/resumatch/internal/deadline"
	"github.com/HanTheDev/resumatch/internal/generation"
	"github.com/HanTheDev/resumatch/internal/idempotency"
	"github.com/HanTheDev/resumatch/internal/logging"
	"github.com/HanTheDev/resumatch/internal/metrics"
	"github.com/HanTheDev/resumatch/internal/ratelimit"
)

// Identity resolves the calling user.
type Identity interface {
	CurrentUser(ctx context.Context) (string, bool)
}

type Limiter interface {
	Check(ctx context.Context, identifier string, cfg ratelimit.Config) (ratelimit.Result, error)
}

type Orchestrator struct {
	identity    Identity
	limiter     Limiter
	idempotency *idempotency.Store
	store       db.Store
	generator   generation.Generator

	// Concurrent misses for the same user and key share one generation.
	flights singleflight.Group
}

// New wires the collaborators. store may be nil, which disables the
// database tier.
func New(identity Identity, limiter Limiter, idem *idempotency.Store, store db.Store, gen generation.Generator) *Orchestrator {
	return &Orchestrator{
		identity:    identity,
		limiter:     limiter,
		idempotency: idem,
		store:       store,
		generator:   gen,
	}
}

type produced struct {
	result     any
	documentID string
}

// Run executes call against ep. On failure the error is always an *Error.
func (o *Orchestrator) Run(ctx context.Context, ep *Endpoint, call Call) (*Response, error) {
	startedAt := time.Now()
	requestID := logging.RequestIDFromContext(ctx)
	log := logging.FromContext(ctx).WithField("route", ep.Route)

	fail := func(e *Error) (*Response, error) {
		fields := logrus.Fields{
			"event":         "generation.failure",
			"latency_ms":    time.Since(startedAt).Milliseconds(),
			"model_failure": e.ModelFailure,
			"code":          e.Code,
		}
		entry := log.WithFields(fields)
		if e.Err != nil {
			entry = entry.WithError(e.Err)
		}
		if e.Status >= http.StatusInternalServerError {
			entry.Error("generation failed")
		} else {
			entry.Warn("generation rejected")
		}
		metrics.GenerationRequests.WithLabelValues(ep.Route, e.Code).Inc()
		return nil, e
	}

	userID, ok := o.identity.CurrentUser(ctx)
	if !ok {
		return fail(&Error{Status: http.StatusUnauthorized, Code: CodeAuthRequired, Message: "Authentication required"})
	}
	log = log.WithField("user_id", userID)

	rl, err := o.limiter.Check(ctx, ep.RatePrefix+"-"+userID, ep.RateLimit)
	if err != nil {
		if errors.Is(err, ratelimit.ErrBackendUnconfigured) {
			return fail(&Error{
				Status:  http.StatusServiceUnavailable,
				Code:    CodeBackendUnconfigured,
				Message: "Rate limiting backend is not configured.",
				Err:     err,
			})
		}
		return fail(&Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "Rate limit check failed", Err: err})
	}
	if !rl.Allowed {
		metrics.RateLimitRejections.WithLabelValues(ep.Route).Inc()
		return fail(rateLimited(rl))
	}

	if call.DecodeErr != nil {
		return fail(validationFailure(&ValidationError{FormErrors: []string{call.DecodeErr.Error()}}))
	}
	if call.Op == nil {
		return fail(validationFailure(errors.New("empty request")))
	}
	op := call.Op
	if err := op.Validate(); err != nil {
		return fail(validationFailure(err))
	}

	ctrl := op.Controls()
	var idemKey idempotency.Key
	hasIdemKey := false
	if k := firstNonEmpty(ctrl.IdempotencyKey, call.IdempotencyHeader); k != "" {
		idemKey = idempotency.Key{UserID: userID, Operation: op.Name(), ClientKey: k}
		hasIdemKey = true
		if rec, ok := o.idempotency.Get(idemKey); ok {
			o.logHit(log, startedAt, "generation.idempotency_replay", "replay")
			metrics.GenerationRequests.WithLabelValues(ep.Route, "replay").Inc()
			return replayResponse(rec.Status, rec.Payload, rl), nil
		}
	}

	register := func(resp *Response) {
		if hasIdemKey {
			o.idempotency.Set(idemKey, resp.Status, resp.Body)
		}
	}

	cacheKey := op.CacheKey().String()

	if !ctrl.ForceRegenerate {
		if ep.Memory != nil {
			if v, ok := ep.Memory.Get(cacheKey); ok {
				o.logHit(log, startedAt, "generation.cache_hit", string(SourceMemory))
				metrics.CacheHits.WithLabelValues(ep.Route, string(SourceMemory)).Inc()
				metrics.GenerationRequests.WithLabelValues(ep.Route, string(SourceMemory)).Inc()
				// Memory hits are cheap to recompute and are not registered.
				return newResponse(http.StatusOK, &Envelope{Result: v, Cached: true, Source: SourceMemory, RequestID: requestID}, rl)
			}
		}

		if stored := o.lookup(ctx, log, op, userID); stored != nil {
			if ep.Memory != nil {
				ep.Memory.Set(cacheKey, stored.Result)
			}
			resp, err := newResponse(http.StatusOK, &Envelope{
				Result:     stored.Result,
				Cached:     true,
				Source:     SourceDatabase,
				DocumentID: stored.DocumentID,
				RequestID:  requestID,
			}, rl)
			if err != nil {
				return fail(&Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "Failed to encode response", Err: err})
			}
			register(resp)
			o.logHit(log, startedAt, "generation.cache_hit", string(SourceDatabase))
			metrics.CacheHits.WithLabelValues(ep.Route, string(SourceDatabase)).Inc()
			metrics.GenerationRequests.WithLabelValues(ep.Route, string(SourceDatabase)).Inc()
			return resp, nil
		}
	}

	// The generation outlives any single caller: a client that gives up only
	// stops waiting, and a retry joining the same flight still gets the result.
	genCtx := context.WithoutCancel(ctx)
	produce := func() (any, error) {
		return o.produce(genCtx, log, ep, op, userID, cacheKey)
	}
	var results <-chan singleflight.Result
	if ctrl.ForceRegenerate {
		ch := make(chan singleflight.Result, 1)
		go func() {
			v, err := produce()
			ch <- singleflight.Result{Val: v, Err: err}
		}()
		results = ch
	} else {
		results = o.flights.DoChan(userID+"|"+cacheKey, produce)
	}

	var out singleflight.Result
	select {
	case out = <-results:
	case <-ctx.Done():
		return fail(&Error{
			Status:  StatusClientClosedRequest,
			Code:    CodeRequestCancelled,
			Message: "Request cancelled before generation finished",
			Err:     ctx.Err(),
		})
	}
	if out.Err != nil {
		return fail(classifyGeneration(ep, out.Err))
	}
	p := out.Val.(produced)

	resp, err := newResponse(http.StatusOK, &Envelope{Result: p.result, Cached: false, DocumentID: p.documentID, RequestID: requestID}, rl)
	if err != nil {
		return fail(&Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "Failed to encode response", Err: err})
	}
	register(resp)

	log.WithFields(logrus.Fields{
		"event":        "generation.success",
		"latency_ms":   time.Since(startedAt).Milliseconds(),
		"cache_source": "none",
		"operation":    op.Name(),
	}).Info("generation succeeded")
	metrics.GenerationRequests.WithLabelValues(ep.Route, "generated").Inc()
	return resp, nil
}

// lookup reads the database tier. Store errors other than a miss are logged
// and treated as a miss so a flaky store never blocks generation.
func (o *Orchestrator) lookup(ctx context.Context, log *logrus.Entry, op Operation, userID string) *Stored {
	p, ok := op.(Persisted)
	if !ok || o.store == nil {
		return nil
	}
	stored, err := p.Lookup(ctx, o.store, userID)
	if err != nil {
		if !db.IsNotFound(err) {
			log.WithError(err).Warn("database tier lookup failed")
		}
		return nil
	}
	return stored
}

// produce generates under the endpoint deadline, fills the memory tier and
// persists the result.
func (o *Orchestrator) produce(ctx context.Context, log *logrus.Entry, ep *Endpoint, op Operation, userID, cacheKey string) (produced, error) {
	began := time.Now()
	result, err := deadline.Run(ctx, ep.Timeout, ep.TimeoutMessage, func(ctx context.Context) (any, error) {
		return op.Generate(ctx, o.generator)
	})
	metrics.GenerationDuration.WithLabelValues(ep.Route).Observe(time.Since(began).Seconds())
	if err != nil {
		return produced{}, err
	}

	if ep.Memory != nil {
		ep.Memory.Set(cacheKey, result)
	}

	// Best effort: the generation is already paid for, so a failed save is
	// logged and the caller still gets the result.
	documentID, err := o.persist(ctx, op, userID, result)
	if err != nil {
		metrics.PersistFailures.WithLabelValues(ep.Route).Inc()
		log.WithError(err).WithField("event", "generation.persist_failed").Error("failed to save generation")
	}
	return produced{result: result, documentID: documentID}, nil
}

func (o *Orchestrator) persist(ctx context.Context, op Operation, userID string, result any) (string, error) {
	p, ok := op.(Persisted)
	if !ok || o.store == nil {
		return "", nil
	}
	return p.Save(ctx, o.store, userID, result)
}

func (o *Orchestrator) logHit(log *logrus.Entry, startedAt time.Time, event, source string) {
	log.WithFields(logrus.Fields{
		"event":        event,
		"latency_ms":   time.Since(startedAt).Milliseconds(),
		"cache_source": source,
	}).Info("served from cache")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
