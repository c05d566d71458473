package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/HanTheDev/resumatch/internal/db"
	"github.com/HanTheDev/resumatch/internal/logging"
	"github.com/HanTheDev/resumatch/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

var historyCollections = map[string]db.Collection{
	"analysis":        db.CollectionAnalyses,
	"cover-letter":    db.CollectionCoverLetters,
	"tailored-resume": db.CollectionTailoredResumes,
}

func (h *Handler) storeAvailable(w http.ResponseWriter, r *http.Request) bool {
	if h.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "History storage is not configured", nil)
		return false
	}
	return true
}

// ListHistory handles GET /api/history?limit=N.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok || !h.storeAvailable(w, r) {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer between 1 and 100", nil)
			return
		}
		limit = n
	}

	items, err := h.store.ListHistory(r.Context(), userID, limit)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("failed to list history")
		writeError(w, r, http.StatusInternalServerError, "HISTORY_FETCH_FAILED", "Failed to fetch history", nil)
		return
	}
	if items == nil {
		items = []models.HistoryItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history":   items,
		"requestId": logging.RequestIDFromContext(r.Context()),
	})
}

// GetHistoryItem handles GET /api/history/{kind}/{id}.
func (h *Handler) GetHistoryItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok || !h.storeAvailable(w, r) {
		return
	}

	vars := mux.Vars(r)
	collection, ok := historyCollections[vars["kind"]]
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid type. Must be analysis, cover-letter or tailored-resume", nil)
		return
	}

	item, err := h.store.Get(r.Context(), collection, userID, vars["id"])
	switch {
	case err == nil:
	case db.IsNotFound(err):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Item not found", nil)
		return
	case errors.Is(err, db.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Not authorized", nil)
		return
	default:
		logging.FromContext(r.Context()).WithError(err).Error("failed to fetch history item")
		writeError(w, r, http.StatusInternalServerError, "HISTORY_ITEM_FETCH_FAILED", "Failed to fetch item", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item":      item,
		"requestId": logging.RequestIDFromContext(r.Context()),
	})
}

// DeleteHistoryItem handles DELETE /api/history/{kind}/{id}. Rows owned by
// other users are reported as missing.
func (h *Handler) DeleteHistoryItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok || !h.storeAvailable(w, r) {
		return
	}

	vars := mux.Vars(r)
	collection, ok := historyCollections[vars["kind"]]
	if !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid type. Must be analysis, cover-letter or tailored-resume", nil)
		return
	}

	deleted, err := h.store.Delete(r.Context(), collection, userID, vars["id"])
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("failed to delete history item")
		writeError(w, r, http.StatusInternalServerError, "HISTORY_ITEM_DELETE_FAILED", "Failed to delete item", nil)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Item not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"requestId": logging.RequestIDFromContext(r.Context()),
	})
}

type userStatsResponse struct {
	TotalScans int `json:"totalScans"`
	AvgScore   int `json:"avgScore"`
	DraftsMade int `json:"draftsMade"`
	*models.UserStats
	RequestID string `json:"requestId"`
}

// UserStats handles GET /api/user-stats.
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok || !h.storeAvailable(w, r) {
		return
	}

	stats, err := h.store.UserStats(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("failed to fetch user stats")
		writeError(w, r, http.StatusInternalServerError, "STATS_FETCH_FAILED", "Failed to fetch user stats", nil)
		return
	}

	resp := userStatsResponse{
		TotalScans: stats.AnalysisCount,
		DraftsMade: stats.CoverLetterCount,
		UserStats:  stats,
		RequestID:  logging.RequestIDFromContext(r.Context()),
	}
	if stats.AverageMatchScore != nil {
		resp.AvgScore = *stats.AverageMatchScore
	}
	writeJSON(w, http.StatusOK, resp)
}
