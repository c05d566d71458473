package orchestrator

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/HanTheDev/resumatch/internal/deadline"
	"github.com/HanTheDev/resumatch/internal/generation"
	"github.com/HanTheDev/resumatch/internal/ratelimit"
)

const (
	CodeAuthRequired        = "AUTH_REQUIRED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeBackendUnconfigured = "RATE_LIMIT_BACKEND_UNCONFIGURED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUpstreamRateLimited = "UPSTREAM_RATE_LIMITED"
	CodeAIConfig            = "AI_CONFIG_ERROR"
	CodeAITimeout           = "AI_TIMEOUT"
	CodeInternal            = "INTERNAL_ERROR"
	CodeRequestCancelled    = "REQUEST_CANCELLED"
)

// StatusClientClosedRequest reports a caller that went away while waiting.
const StatusClientClosedRequest = 499

// Error is a failed request with everything the HTTP layer needs.
type Error struct {
	Status     int
	Code       string
	Message    string
	Details    any
	RetryAfter time.Duration
	RateLimit  *ratelimit.Result
	// ModelFailure marks errors raised by the generation call.
	ModelFailure bool
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError lists every violated field. It encodes like a flattened
// schema error: {"formErrors": [...], "fieldErrors": {...}}.
type ValidationError struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func (v *ValidationError) Error() string {
	parts := append([]string{}, v.FormErrors...)
	for field, msgs := range v.FieldErrors {
		parts = append(parts, field+": "+strings.Join(msgs, ", "))
	}
	return "invalid request payload: " + strings.Join(parts, "; ")
}

// Add records one message for field.
func (v *ValidationError) Add(field, msg string) {
	if v.FieldErrors == nil {
		v.FieldErrors = map[string][]string{}
	}
	v.FieldErrors[field] = append(v.FieldErrors[field], msg)
}

// Empty reports whether nothing was recorded.
func (v *ValidationError) Empty() bool {
	return len(v.FormErrors) == 0 && len(v.FieldErrors) == 0
}

// AsError returns v, or nil when empty.
func (v *ValidationError) AsError() error {
	if v.Empty() {
		return nil
	}
	return v
}

func validationFailure(err error) *Error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		verr = &ValidationError{FormErrors: []string{err.Error()}}
	}
	if verr.FormErrors == nil {
		verr.FormErrors = []string{}
	}
	if verr.FieldErrors == nil {
		verr.FieldErrors = map[string][]string{}
	}
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "Invalid request payload",
		Details: verr,
		Err:     err,
	}
}

func rateLimited(rl ratelimit.Result) *Error {
	secs := int((rl.ResetIn + time.Second - 1) / time.Second)
	return &Error{
		Status:     http.StatusTooManyRequests,
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", secs),
		RetryAfter: rl.ResetIn,
		RateLimit:  &rl,
	}
}

// classifyGeneration maps a failed generation onto the public taxonomy.
func classifyGeneration(ep *Endpoint, err error) *Error {
	switch {
	case errors.Is(err, deadline.ErrTimeout):
		code := ep.TimeoutCode
		if code == "" {
			code = CodeAITimeout
		}
		return &Error{Status: http.StatusGatewayTimeout, Code: code, Message: err.Error(), ModelFailure: true, Err: err}
	case errors.Is(err, generation.ErrQuota):
		return &Error{
			Status:       http.StatusTooManyRequests,
			Code:         CodeUpstreamRateLimited,
			Message:      "AI rate limit exceeded. Please try again shortly.",
			ModelFailure: true,
			Err:          err,
		}
	case errors.Is(err, generation.ErrMisconfigured):
		return &Error{
			Status:       http.StatusInternalServerError,
			Code:         CodeAIConfig,
			Message:      "AI service configuration error. Please contact support.",
			ModelFailure: true,
			Err:          err,
		}
	}
	code := ep.FailureCode
	if code == "" {
		code = CodeInternal
	}
	return &Error{
		Status:       http.StatusInternalServerError,
		Code:         code,
		Message:      ep.FailurePrefix + err.Error(),
		ModelFailure: true,
		Err:          err,
	}
}
