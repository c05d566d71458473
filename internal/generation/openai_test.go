package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, status int, content string, seen *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "upstream said no", "type": "error"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Analyze(t *testing.T) {
	var seen capturedRequest
	srv := newChatServer(t, http.StatusOK, "Dear Hiring Manager", &seen)
	c := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "test-model"})

	got, err := c.Analyze(context.Background(), "resume", "job", AnalysisCoverLetter, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Dear Hiring Manager" {
		t.Errorf("unexpected content %q", got)
	}
	if seen.Model != "test-model" {
		t.Errorf("unexpected model %q", seen.Model)
	}
	if seen.Temperature != 0.8 {
		t.Errorf("expected cover letter temperature 0.8, got %v", seen.Temperature)
	}
	if len(seen.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(seen.Messages))
	}
}

func TestOpenAIClient_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"quota", http.StatusTooManyRequests, ErrQuota},
		{"unauthorized", http.StatusUnauthorized, ErrMisconfigured},
		{"forbidden", http.StatusForbidden, ErrMisconfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newChatServer(t, tt.status, "", nil)
			c := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
			_, err := c.Analyze(context.Background(), "r", "j", AnalysisOverview, Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestOpenAIClient_ServerErrorIsGeneric(t *testing.T) {
	srv := newChatServer(t, http.StatusInternalServerError, "", nil)
	c := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
	_, err := c.Analyze(context.Background(), "r", "j", AnalysisOverview, Options{})
	if err == nil || errors.Is(err, ErrQuota) || errors.Is(err, ErrMisconfigured) {
		t.Errorf("expected unclassified error, got %v", err)
	}
}

func TestOpenAIClient_EmptyResponse(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "   ", nil)
	c := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
	if _, err := c.Analyze(context.Background(), "r", "j", AnalysisMatch, Options{}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIClient_MissingKey(t *testing.T) {
	c := NewOpenAIClient(ClientConfig{})
	if c.Configured() {
		t.Error("expected unconfigured client")
	}
	if _, err := c.Analyze(context.Background(), "r", "j", AnalysisOverview, Options{}); !errors.Is(err, ErrMisconfigured) {
		t.Errorf("expected ErrMisconfigured, got %v", err)
	}
}

func TestOpenAIClient_TailorResume(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, `{"fullName":"Ada","summary":"Analyst"}`, nil)
	c := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
	r, err := c.TailorResume(context.Background(), "r", "j")
	if err != nil {
		t.Fatal(err)
	}
	if r.FullName != "Ada" {
		t.Errorf("unexpected resume %+v", r)
	}
}

func newModelsServer(t *testing.T, status int, path *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "bad key", "type": "error"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": "test-model", "object": "model", "owned_by": "test"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Ping(t *testing.T) {
	var path string
	srv := newModelsServer(t, http.StatusOK, &path)
	c := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/v1/models" {
		t.Errorf("expected a models listing, got %s", path)
	}
}

func TestOpenAIClient_PingFailures(t *testing.T) {
	var path string
	srv := newModelsServer(t, http.StatusUnauthorized, &path)

	bad := NewOpenAIClient(ClientConfig{APIKey: "wrong", BaseURL: srv.URL + "/v1"})
	if err := bad.Ping(context.Background()); !errors.Is(err, ErrMisconfigured) {
		t.Errorf("expected ErrMisconfigured for a rejected key, got %v", err)
	}

	path = ""
	keyless := NewOpenAIClient(ClientConfig{BaseURL: srv.URL + "/v1"})
	if err := keyless.Ping(context.Background()); !errors.Is(err, ErrMisconfigured) {
		t.Errorf("expected ErrMisconfigured without a key, got %v", err)
	}
	if path != "" {
		t.Error("expected no request without a key")
	}
}
