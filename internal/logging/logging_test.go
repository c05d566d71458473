package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMiddleware_PropagatesInboundID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-123" {
		t.Errorf("expected req-123 in context, got %q", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("expected header echoed, got %q", got)
	}
}

func TestMiddleware_GeneratesID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if len(seen) != 36 {
		t.Errorf("expected a uuid, got %q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Error("expected generated id echoed")
	}
}

func TestSetup_Level(t *testing.T) {
	l := Setup("debug", "text")
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug, got %v", l.GetLevel())
	}
	l = Setup("bogus", "json")
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info fallback, got %v", l.GetLevel())
	}
}
