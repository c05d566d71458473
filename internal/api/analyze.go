package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/HanTheDev/resumatch/internal/cache"
	"github.com/HanTheDev/resumatch/internal/db"
	"github.com/HanTheDev/resumatch/internal/deadline"
	"github.com/HanTheDev/resumatch/internal/generation"
	"github.com/HanTheDev/resumatch/internal/logging"
	"github.com/HanTheDev/resumatch/internal/models"
	"github.com/HanTheDev/resumatch/internal/orchestrator"
)

type analyzeRequest struct {
	ResumeText        string `json:"resumeText" validate:"required,max=50000"`
	JobDescription    string `json:"jobDescription" validate:"required,max=15000"`
	AnalysisType      string `json:"analysisType" validate:"required,oneof=overview keywords match coverLetter"`
	Tone              string `json:"tone,omitempty" validate:"omitempty,oneof=professional friendly enthusiastic"`
	Length            string `json:"length,omitempty" validate:"omitempty,oneof=concise standard detailed"`
	CompanyName       string `json:"companyName,omitempty" validate:"max=500"`
	HiringManagerName string `json:"hiringManagerName,omitempty" validate:"max=500"`
	Achievements      string `json:"achievements,omitempty" validate:"max=500"`
	ResumeName        string `json:"resumeName,omitempty" validate:"max=500"`
	JobTitle          string `json:"jobTitle,omitempty" validate:"max=500"`
	ForceRegenerate   bool   `json:"forceRegenerate,omitempty"`
	IdempotencyKey    string `json:"idempotencyKey,omitempty" validate:"omitempty,min=8,max=128"`
}

// analyzeOp serves overview, keywords, match and cover letter generation.
// Cover letters live in their own table, keyed by tone and length.
type analyzeOp struct {
	req      analyzeRequest
	validate *validator.Validate
}

func (o *analyzeOp) Name() string { return o.req.AnalysisType }

func (o *analyzeOp) Validate() error {
	r := &o.req
	trimAll(&r.ResumeText, &r.JobDescription, &r.AnalysisType, &r.Tone, &r.Length,
		&r.CompanyName, &r.HiringManagerName, &r.Achievements, &r.ResumeName, &r.JobTitle, &r.IdempotencyKey)
	if err := structError(o.validate, r); err != nil {
		return err
	}
	cleanAll(&r.CompanyName, &r.HiringManagerName, &r.Achievements, &r.ResumeName, &r.JobTitle)
	if r.Tone == "" {
		r.Tone = generation.DefaultTone
	}
	if r.Length == "" {
		r.Length = generation.DefaultLength
	}
	return nil
}

func (o *analyzeOp) Controls() orchestrator.Controls {
	return orchestrator.Controls{IdempotencyKey: o.req.IdempotencyKey, ForceRegenerate: o.req.ForceRegenerate}
}

func (o *analyzeOp) CacheKey() cache.Key {
	return cache.NewKey(o.req.AnalysisType, o.req.ResumeText, o.req.JobDescription, o.req.Tone, o.req.Length)
}

func (o *analyzeOp) analysisType() generation.AnalysisType {
	return generation.AnalysisType(o.req.AnalysisType)
}

func (o *analyzeOp) Generate(ctx context.Context, g generation.Generator) (any, error) {
	raw, err := g.Analyze(ctx, o.req.ResumeText, o.req.JobDescription, o.analysisType(), generation.Options{
		Tone:              o.req.Tone,
		Length:            o.req.Length,
		CompanyName:       o.req.CompanyName,
		HiringManagerName: o.req.HiringManagerName,
		Achievements:      o.req.Achievements,
	})
	if err != nil {
		return nil, err
	}
	if o.analysisType() == generation.AnalysisMatch {
		return generation.NormalizeMatch(raw), nil
	}
	return raw, nil
}

func (o *analyzeOp) Lookup(ctx context.Context, store db.Store, userID string) (*orchestrator.Stored, error) {
	resumeHash, jdHash := cache.Hash(o.req.ResumeText), cache.Hash(o.req.JobDescription)

	if o.analysisType() == generation.AnalysisCoverLetter {
		c, err := store.FindCoverLetter(ctx, db.CoverLetterLookup{
			UserID:             userID,
			ResumeHash:         resumeHash,
			JobDescriptionHash: jdHash,
			Tone:               o.req.Tone,
			Length:             o.req.Length,
		})
		if err != nil {
			return nil, err
		}
		return &orchestrator.Stored{Result: c.Result, DocumentID: c.ID}, nil
	}

	a, err := store.FindAnalysis(ctx, db.AnalysisLookup{
		UserID:             userID,
		ResumeHash:         resumeHash,
		JobDescriptionHash: jdHash,
		AnalysisType:       o.req.AnalysisType,
	})
	if err != nil {
		return nil, err
	}
	var result any = a.Result
	if o.analysisType() == generation.AnalysisMatch {
		result = generation.NormalizeMatch(a.Result)
	}
	return &orchestrator.Stored{Result: result, DocumentID: a.ID}, nil
}

func (o *analyzeOp) Save(ctx context.Context, store db.Store, userID string, result any) (string, error) {
	resumeHash, jdHash := cache.Hash(o.req.ResumeText), cache.Hash(o.req.JobDescription)

	if o.analysisType() == generation.AnalysisCoverLetter {
		text, _ := result.(string)
		return store.SaveCoverLetter(ctx, &models.CoverLetter{
			UserID:             userID,
			ResumeHash:         resumeHash,
			JobDescriptionHash: jdHash,
			Tone:               o.req.Tone,
			Length:             o.req.Length,
			Result:             text,
			CompanyName:        o.req.CompanyName,
			HiringManagerName:  o.req.HiringManagerName,
			ResumeName:         o.req.ResumeName,
			JobDescription:     o.req.JobDescription,
		})
	}

	a := &models.Analysis{
		UserID:             userID,
		ResumeHash:         resumeHash,
		JobDescriptionHash: jdHash,
		AnalysisType:       o.req.AnalysisType,
		ResumeName:         o.req.ResumeName,
		JobTitle:           o.req.JobTitle,
		CompanyName:        o.req.CompanyName,
		JobDescription:     o.req.JobDescription,
	}
	switch v := result.(type) {
	case string:
		a.Result = v
	case generation.MatchAnalysis:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode match analysis: %w", err)
		}
		a.Result = string(encoded)
		if v.JobTitle != nil && *v.JobTitle != "" {
			a.JobTitle = *v.JobTitle
		}
		if v.CompanyName != nil && *v.CompanyName != "" {
			a.CompanyName = *v.CompanyName
		}
	default:
		return "", fmt.Errorf("unexpected analysis result %T", result)
	}
	return store.SaveAnalysis(ctx, a)
}

// Analyze handles POST /api/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	op := &analyzeOp{validate: h.validate}
	if err := decodeJSON(w, r, &op.req); err != nil {
		h.run(w, r, h.analyze, orchestrator.Call{DecodeErr: err})
		return
	}
	ep := h.analyze
	if strings.TrimSpace(op.req.AnalysisType) == string(generation.AnalysisCoverLetter) {
		ep = h.analyzeNoMemory
	}
	h.run(w, r, ep, orchestrator.Call{Op: op})
}

type coverLetterRequest struct {
	ResumeText        string `json:"resumeText" validate:"required,max=50000"`
	JobDescription    string `json:"jobDescription" validate:"required,max=15000"`
	Tone              string `json:"tone" validate:"omitempty,oneof=professional friendly enthusiastic"`
	Length            string `json:"length" validate:"omitempty,oneof=concise standard detailed"`
	CompanyName       string `json:"companyName" validate:"max=500"`
	HiringManagerName string `json:"hiringManagerName" validate:"max=500"`
	Achievements      string `json:"achievements" validate:"max=500"`
	ResumeName        string `json:"resumeName" validate:"max=500"`
	JobTitle          string `json:"jobTitle" validate:"max=500"`
	IdempotencyKey    string `json:"idempotencyKey" validate:"omitempty,min=8,max=128"`
}

type coverLetterResponse struct {
	Result     string              `json:"result"`
	WordCount  int                 `json:"wordCount"`
	Tone       string              `json:"tone"`
	Length     string              `json:"length"`
	Cached     bool                `json:"cached"`
	Source     orchestrator.Source `json:"source,omitempty"`
	DocumentID string              `json:"documentId,omitempty"`
	RequestID  string              `json:"requestId"`
}

// GenerateCoverLetter validates a cover letter request, runs it through the
// analyze lifecycle and reshapes the envelope. Analyze failures pass
// through unchanged.
func (h *Handler) GenerateCoverLetter(w http.ResponseWriter, r *http.Request) {
	var req coverLetterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, orchestrator.CodeValidation, "Invalid request payload",
			&orchestrator.ValidationError{FormErrors: []string{err.Error()}, FieldErrors: map[string][]string{}})
		return
	}
	trimAll(&req.ResumeText, &req.JobDescription, &req.Tone, &req.Length, &req.IdempotencyKey)
	if err := structError(h.validate, &req); err != nil {
		var verr *orchestrator.ValidationError
		if errors.As(err, &verr) {
			if verr.FormErrors == nil {
				verr.FormErrors = []string{}
			}
			writeError(w, r, http.StatusBadRequest, orchestrator.CodeValidation, "Invalid request payload", verr)
			return
		}
		writeError(w, r, http.StatusBadRequest, orchestrator.CodeValidation, err.Error(), nil)
		return
	}
	if req.Tone == "" {
		req.Tone = generation.DefaultTone
	}
	if req.Length == "" {
		req.Length = generation.DefaultLength
	}

	op := &analyzeOp{validate: h.validate, req: analyzeRequest{
		ResumeText:        req.ResumeText,
		JobDescription:    req.JobDescription,
		AnalysisType:      string(generation.AnalysisCoverLetter),
		Tone:              req.Tone,
		Length:            req.Length,
		CompanyName:       req.CompanyName,
		HiringManagerName: req.HiringManagerName,
		Achievements:      req.Achievements,
		ResumeName:        req.ResumeName,
		JobTitle:          req.JobTitle,
		IdempotencyKey:    req.IdempotencyKey,
	}}
	call := orchestrator.Call{Op: op, IdempotencyHeader: r.Header.Get(IdempotencyHeader)}

	resp, err := deadline.Run(r.Context(), h.coverLetterTimeout, "Cover letter generation timed out. Please try again.",
		func(ctx context.Context) (*orchestrator.Response, error) {
			return h.orch.Run(ctx, h.analyzeNoMemory, call)
		})
	if err != nil {
		if errors.Is(err, deadline.ErrTimeout) {
			logging.FromContext(r.Context()).WithField("route", "/api/generate-cover-letter").
				WithField("code", "COVER_LETTER_TIMEOUT").Error("cover letter generation timed out")
			writeError(w, r, http.StatusGatewayTimeout, "COVER_LETTER_TIMEOUT", err.Error(), nil)
			return
		}
		writeRunError(w, r, err)
		return
	}

	env := resp.Envelope
	var text string
	ok := env != nil
	if ok {
		text, ok = env.Result.(string)
	}
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "UPSTREAM_CONTRACT_MISMATCH", "Unexpected analyze response shape", nil)
		return
	}

	setRateLimitHeaders(w, resp.RateLimit)
	// The envelope's request id is the original one on a replay, which keeps
	// the wrapped body identical too.
	writeJSON(w, resp.Status, coverLetterResponse{
		Result:     text,
		WordCount:  len(strings.Fields(text)),
		Tone:       req.Tone,
		Length:     req.Length,
		Cached:     env.Cached,
		Source:     env.Source,
		DocumentID: env.DocumentID,
		RequestID:  env.RequestID,
	})
}
