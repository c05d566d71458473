package orchestrator

import (
	"encoding/json"

	"github.com/HanTheDev/resumatch/internal/ratelimit"
)

// Source tells which tier answered a cached response.
type Source string

const (
	SourceNone     Source = ""
	SourceMemory   Source = "memory"
	SourceDatabase Source = "database"
)

// Envelope is the success body shared by every tier.
type Envelope struct {
	Result     any    `json:"result"`
	Cached     bool   `json:"cached"`
	Source     Source `json:"source,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
	RequestID  string `json:"requestId"`
}

// Response is what the HTTP layer writes. Body holds the exact bytes; for a
// replay they are the bytes of the original response and Envelope is
// decoded from them.
type Response struct {
	Status    int
	Body      []byte
	Envelope  *Envelope
	Replayed  bool
	RateLimit ratelimit.Result
}

func newResponse(status int, env *Envelope, rl ratelimit.Result) (*Response, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return &Response{Status: status, Body: body, Envelope: env, RateLimit: rl}, nil
}

func replayResponse(status int, body []byte, rl ratelimit.Result) *Response {
	resp := &Response{Status: status, Body: body, Replayed: true, RateLimit: rl}
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil {
		resp.Envelope = &env
	}
	return resp
}
