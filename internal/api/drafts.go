package api

import (
	"net/http"
	"time"

	"github.com/HanTheDev/resumatch/internal/auth"
	"github.com/HanTheDev/resumatch/internal/drafts"
	"github.com/HanTheDev/resumatch/internal/logging"
)

type draftResponse struct {
	Kind      drafts.Kind    `json:"kind"`
	Draft     map[string]any `json:"draft"`
	UpdatedAt *time.Time     `json:"updatedAt"`
	RequestID string         `json:"requestId"`
}

// requireUser writes AUTH_REQUIRED and returns false for anonymous callers.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "AUTH_REQUIRED", "Authentication required", nil)
	}
	return userID, ok
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	kind, err := drafts.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid draft kind", nil)
		return
	}

	resp := draftResponse{Kind: kind, RequestID: logging.RequestIDFromContext(r.Context())}
	if d, ok := h.drafts.Get(userID, kind); ok {
		resp.Draft = d.Payload
		resp.UpdatedAt = &d.UpdatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) PutDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Kind  string         `json:"kind"`
		Draft map[string]any `json:"draft"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid draft payload", nil)
		return
	}
	kind, err := drafts.ParseKind(body.Kind)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid draft kind", nil)
		return
	}
	if body.Draft == nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid draft payload", nil)
		return
	}

	updatedAt := h.drafts.Set(userID, kind, body.Draft)
	writeJSON(w, http.StatusOK, draftResponse{
		Kind:      kind,
		Draft:     body.Draft,
		UpdatedAt: &updatedAt,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	kind, err := drafts.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid draft kind", nil)
		return
	}

	h.drafts.Delete(userID, kind)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"requestId": logging.RequestIDFromContext(r.Context()),
	})
}
