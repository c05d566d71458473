package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/HanTheDev/resumatch/internal/cache"
	"github.com/HanTheDev/resumatch/internal/db"
	"github.com/HanTheDev/resumatch/internal/generation"
	"github.com/HanTheDev/resumatch/internal/latex"
	"github.com/HanTheDev/resumatch/internal/models"
	"github.com/HanTheDev/resumatch/internal/orchestrator"
)

type tailoredResumeRequest struct {
	ResumeText      string `json:"resumeText" validate:"required,max=50000"`
	JobDescription  string `json:"jobDescription" validate:"required,max=15000"`
	TemplateID      string `json:"templateId" validate:"omitempty,oneof=awesome-classic deedy-modern sb2nov-ats"`
	ResumeName      string `json:"resumeName" validate:"max=500"`
	ForceRegenerate bool   `json:"forceRegenerate"`
	IdempotencyKey  string `json:"idempotencyKey" validate:"omitempty,min=8,max=128"`
}

type tailoredResumeResult struct {
	LatexSource    string                     `json:"latexSource"`
	StructuredData *generation.TailoredResume `json:"structuredData"`
	TemplateID     string                     `json:"templateId"`
}

type tailoredResumeOp struct {
	req      tailoredResumeRequest
	validate *validator.Validate
}

func (o *tailoredResumeOp) Name() string { return "tailoredResume" }

func (o *tailoredResumeOp) Validate() error {
	r := &o.req
	trimAll(&r.ResumeText, &r.JobDescription, &r.TemplateID, &r.ResumeName, &r.IdempotencyKey)
	if err := structError(o.validate, r); err != nil {
		return err
	}
	r.ResumeName = cleanFreeText(r.ResumeName)
	if r.TemplateID == "" {
		r.TemplateID = latex.DefaultTemplate
	}
	return nil
}

func (o *tailoredResumeOp) Controls() orchestrator.Controls {
	return orchestrator.Controls{IdempotencyKey: o.req.IdempotencyKey, ForceRegenerate: o.req.ForceRegenerate}
}

func (o *tailoredResumeOp) CacheKey() cache.Key {
	return cache.NewKey(o.Name(), o.req.ResumeText, o.req.JobDescription, o.req.TemplateID)
}

func (o *tailoredResumeOp) Generate(ctx context.Context, g generation.Generator) (any, error) {
	data, err := g.TailorResume(ctx, o.req.ResumeText, o.req.JobDescription)
	if err != nil {
		return nil, err
	}
	source, err := latex.Build(o.req.TemplateID, data)
	if err != nil {
		return nil, err
	}
	return tailoredResumeResult{LatexSource: source, StructuredData: data, TemplateID: o.req.TemplateID}, nil
}

func (o *tailoredResumeOp) Lookup(ctx context.Context, store db.Store, userID string) (*orchestrator.Stored, error) {
	found, err := store.FindTailoredResume(ctx, db.TailoredResumeLookup{
		UserID:             userID,
		ResumeHash:         cache.Hash(o.req.ResumeText),
		JobDescriptionHash: cache.Hash(o.req.JobDescription),
		TemplateID:         o.req.TemplateID,
	})
	if err != nil {
		return nil, err
	}
	data := &generation.TailoredResume{}
	// A row with unreadable structured data still has usable LaTeX.
	_ = json.Unmarshal([]byte(found.StructuredData), data)
	return &orchestrator.Stored{
		Result:     tailoredResumeResult{LatexSource: found.LatexSource, StructuredData: data, TemplateID: o.req.TemplateID},
		DocumentID: found.ID,
	}, nil
}

func (o *tailoredResumeOp) Save(ctx context.Context, store db.Store, userID string, result any) (string, error) {
	res, ok := result.(tailoredResumeResult)
	if !ok {
		return "", fmt.Errorf("unexpected tailored resume result %T", result)
	}
	structured, err := json.Marshal(res.StructuredData)
	if err != nil {
		return "", fmt.Errorf("encode structured resume: %w", err)
	}
	return store.SaveTailoredResume(ctx, &models.TailoredResume{
		UserID:             userID,
		ResumeHash:         cache.Hash(o.req.ResumeText),
		JobDescriptionHash: cache.Hash(o.req.JobDescription),
		TemplateID:         o.req.TemplateID,
		StructuredData:     string(structured),
		LatexSource:        res.LatexSource,
		JobTitle:           res.StructuredData.TargetTitle,
		ResumeName:         o.req.ResumeName,
		JobDescription:     o.req.JobDescription,
	})
}

// GenerateResumeLatex handles POST /api/generate-resume-latex.
func (h *Handler) GenerateResumeLatex(w http.ResponseWriter, r *http.Request) {
	op := &tailoredResumeOp{validate: h.validate}
	if err := decodeJSON(w, r, &op.req); err != nil {
		h.run(w, r, h.resume, orchestrator.Call{DecodeErr: err})
		return
	}
	h.run(w, r, h.resume, orchestrator.Call{Op: op})
}

// defaultSkillsJobDescription stands in when skills are extracted from a
// resume alone.
const defaultSkillsJobDescription = "General job position"

type skillsRequest struct {
	ResumeText     string `json:"resumeText" validate:"required,max=50000"`
	JobDescription string `json:"jobDescription" validate:"max=15000"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,min=8,max=128"`
}

// skillsOp lives in the memory tier only.
type skillsOp struct {
	req      skillsRequest
	validate *validator.Validate
}

func (o *skillsOp) Name() string { return "skills" }

func (o *skillsOp) Validate() error {
	trimAll(&o.req.ResumeText, &o.req.JobDescription, &o.req.IdempotencyKey)
	return structError(o.validate, &o.req)
}

func (o *skillsOp) Controls() orchestrator.Controls {
	return orchestrator.Controls{IdempotencyKey: o.req.IdempotencyKey}
}

func (o *skillsOp) CacheKey() cache.Key {
	return cache.NewKey(o.Name(), o.req.ResumeText, o.req.JobDescription)
}

// Generate returns the parsed skill lists, or the raw text when the model
// did not answer with JSON.
func (o *skillsOp) Generate(ctx context.Context, g generation.Generator) (any, error) {
	jd := o.req.JobDescription
	if jd == "" {
		jd = defaultSkillsJobDescription
	}
	raw, err := g.Analyze(ctx, o.req.ResumeText, jd, generation.AnalysisKeywords, generation.Options{})
	if err != nil {
		return nil, err
	}
	if skills, ok := generation.NormalizeSkills(raw); ok {
		return skills, nil
	}
	return raw, nil
}

// ExtractSkills handles POST /api/extract-skills.
func (h *Handler) ExtractSkills(w http.ResponseWriter, r *http.Request) {
	op := &skillsOp{validate: h.validate}
	if err := decodeJSON(w, r, &op.req); err != nil {
		h.run(w, r, h.skills, orchestrator.Call{DecodeErr: err})
		return
	}
	h.run(w, r, h.skills, orchestrator.Call{Op: op})
}

type matchScoreRequest struct {
	ResumeText     string `json:"resumeText" validate:"required,max=50000"`
	JobDescription string `json:"jobDescription" validate:"required,max=15000"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,min=8,max=128"`
}

type matchScoreResult struct {
	Score    int                      `json:"score"`
	Analysis generation.MatchAnalysis `json:"analysis"`
}

type matchScoreOp struct {
	req      matchScoreRequest
	validate *validator.Validate
}

func (o *matchScoreOp) Name() string { return "matchScore" }

func (o *matchScoreOp) Validate() error {
	trimAll(&o.req.ResumeText, &o.req.JobDescription, &o.req.IdempotencyKey)
	return structError(o.validate, &o.req)
}

func (o *matchScoreOp) Controls() orchestrator.Controls {
	return orchestrator.Controls{IdempotencyKey: o.req.IdempotencyKey}
}

func (o *matchScoreOp) CacheKey() cache.Key {
	return cache.NewKey(o.Name(), o.req.ResumeText, o.req.JobDescription)
}

func (o *matchScoreOp) Generate(ctx context.Context, g generation.Generator) (any, error) {
	raw, err := g.Analyze(ctx, o.req.ResumeText, o.req.JobDescription, generation.AnalysisMatch, generation.Options{})
	if err != nil {
		return nil, err
	}
	analysis := generation.NormalizeMatch(raw)
	return matchScoreResult{Score: int(math.Round(analysis.MatchScore)), Analysis: analysis}, nil
}

// MatchScore handles POST /api/match-score.
func (h *Handler) MatchScore(w http.ResponseWriter, r *http.Request) {
	op := &matchScoreOp{validate: h.validate}
	if err := decodeJSON(w, r, &op.req); err != nil {
		h.run(w, r, h.matchScore, orchestrator.Call{DecodeErr: err})
		return
	}
	h.run(w, r, h.matchScore, orchestrator.Call{Op: op})
}
