// Package api exposes the generation routes and their supporting endpoints
// over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HanTheDev/resumatch/internal/cache"
	"github.com/HanTheDev/resumatch/internal/db"
	"github.com/HanTheDev/resumatch/internal/drafts"
	"github.com/HanTheDev/resumatch/internal/logging"
	"github.com/HanTheDev/resumatch/internal/orchestrator"
	"github.com/HanTheDev/resumatch/internal/ratelimit"
)

const (
	maxBodyBytes = 1 << 20

	// Content caches are small and short lived; the database tier is the
	// cross-instance fallback.
	memoryCacheSize = 32
	memoryCacheTTL  = 10 * time.Minute

	IdempotencyHeader = "Idempotency-Key"
)

// Timeouts bound how long each route waits on the model.
type Timeouts struct {
	AI          time.Duration
	CoverLetter time.Duration
	Resume      time.Duration
}

type Handler struct {
	orch     *orchestrator.Orchestrator
	store    db.Store
	drafts   *drafts.Store
	probes   map[string]Probe
	validate *validator.Validate

	analyze            *orchestrator.Endpoint
	analyzeNoMemory    *orchestrator.Endpoint
	resume             *orchestrator.Endpoint
	skills             *orchestrator.Endpoint
	matchScore         *orchestrator.Endpoint
	coverLetterTimeout time.Duration
}

// NewHandler builds the routes' endpoints, each with its own memory tier.
// store may be nil, in which case history routes answer 503.
func NewHandler(orch *orchestrator.Orchestrator, store db.Store, draftStore *drafts.Store, probes map[string]Probe, t Timeouts) *Handler {
	perMinute := func(n int) ratelimit.Config {
		return ratelimit.Config{Window: time.Minute, MaxRequests: n}
	}

	analyze := &orchestrator.Endpoint{
		Route:          "/api/analyze",
		RatePrefix:     "analyze",
		RateLimit:      perMinute(20),
		Timeout:        t.AI,
		TimeoutMessage: "AI generation timed out. Please try again.",
		TimeoutCode:    "AI_TIMEOUT",
		FailureCode:    "ANALYSIS_FAILED",
		FailurePrefix:  "Analysis failed: ",
		Memory:         cache.NewLRU[any](memoryCacheSize, memoryCacheTTL),
	}
	// Cover letters are a fresh render each time and skip the memory tier.
	analyzeNoMemory := *analyze
	analyzeNoMemory.Memory = nil

	return &Handler{
		orch:            orch,
		store:           store,
		drafts:          draftStore,
		probes:          probes,
		validate:        newValidator(),
		analyze:         analyze,
		analyzeNoMemory: &analyzeNoMemory,
		resume: &orchestrator.Endpoint{
			Route:          "/api/generate-resume-latex",
			RatePrefix:     "resume-latex",
			RateLimit:      perMinute(12),
			Timeout:        t.Resume,
			TimeoutMessage: "Resume generation timed out. Please try again.",
			TimeoutCode:    "RESUME_TIMEOUT",
			FailureCode:    "RESUME_GENERATION_FAILED",
		},
		skills: &orchestrator.Endpoint{
			Route:          "/api/extract-skills",
			RatePrefix:     "extract-skills",
			RateLimit:      perMinute(20),
			Timeout:        t.AI,
			TimeoutMessage: "Skills extraction timed out. Please try again.",
			TimeoutCode:    "AI_TIMEOUT",
			FailureCode:    "SKILLS_EXTRACTION_FAILED",
			FailurePrefix:  "Skills extraction failed: ",
			Memory:         cache.NewLRU[any](memoryCacheSize, memoryCacheTTL),
		},
		matchScore: &orchestrator.Endpoint{
			Route:          "/api/match-score",
			RatePrefix:     "match-score",
			RateLimit:      perMinute(20),
			Timeout:        t.AI,
			TimeoutMessage: "Match scoring timed out. Please try again.",
			TimeoutCode:    "AI_TIMEOUT",
			FailureCode:    "MATCH_SCORE_FAILED",
			FailurePrefix:  "Match scoring failed: ",
			Memory:         cache.NewLRU[any](memoryCacheSize, memoryCacheTTL),
		},
		coverLetterTimeout: t.CoverLetter,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Generation
	router.HandleFunc("/api/analyze", h.Analyze).Methods("POST")
	router.HandleFunc("/api/generate-cover-letter", h.GenerateCoverLetter).Methods("POST")
	router.HandleFunc("/api/generate-resume-latex", h.GenerateResumeLatex).Methods("POST")
	router.HandleFunc("/api/extract-skills", h.ExtractSkills).Methods("POST")
	router.HandleFunc("/api/match-score", h.MatchScore).Methods("POST")

	// Drafts and history
	router.HandleFunc("/api/drafts", h.GetDraft).Methods("GET")
	router.HandleFunc("/api/drafts", h.PutDraft).Methods("PUT")
	router.HandleFunc("/api/drafts", h.DeleteDraft).Methods("DELETE")
	router.HandleFunc("/api/history", h.ListHistory).Methods("GET")
	router.HandleFunc("/api/history/{kind}/{id}", h.GetHistoryItem).Methods("GET")
	router.HandleFunc("/api/history/{kind}/{id}", h.DeleteHistoryItem).Methods("DELETE")
	router.HandleFunc("/api/user-stats", h.UserStats).Methods("GET")
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeRaw writes pre-encoded bytes unchanged so replays stay identical.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, status, errorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

func setRateLimitHeaders(w http.ResponseWriter, rl ratelimit.Result) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(rl.ResetIn)))
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// writeRunError writes an orchestrator failure. Anything else is reported
// as an internal error.
func writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	var e *orchestrator.Error
	if !errors.As(err, &e) {
		logging.FromContext(r.Context()).WithError(err).Error("unexpected generation error")
		writeError(w, r, http.StatusInternalServerError, orchestrator.CodeInternal, "Internal server error", nil)
		return
	}
	if e.RateLimit != nil {
		setRateLimitHeaders(w, *e.RateLimit)
	}
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(e.RetryAfter)))
	}
	writeError(w, r, e.Status, e.Code, e.Message, e.Details)
}

// run hands call to the orchestrator and writes the response bytes exactly
// as produced.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, ep *orchestrator.Endpoint, call orchestrator.Call) {
	call.IdempotencyHeader = r.Header.Get(IdempotencyHeader)
	resp, err := h.orch.Run(r.Context(), ep, call)
	if err != nil {
		writeRunError(w, r, err)
		return
	}
	setRateLimitHeaders(w, resp.RateLimit)
	if resp.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	writeRaw(w, resp.Status, resp.Body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
