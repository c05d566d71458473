// Package generation talks to the language model and turns its raw output
// into the shapes the API returns.
package generation

import (
	"context"
	"errors"
)

var (
	// ErrQuota means the model provider throttled us.
	ErrQuota = errors.New("generation: upstream quota or rate limit exceeded")
	// ErrMisconfigured means the credential is missing or rejected.
	ErrMisconfigured = errors.New("generation: API key missing or invalid")
	ErrEmptyResponse = errors.New("generation: model returned an empty response")
)

type AnalysisType string

const (
	AnalysisOverview    AnalysisType = "overview"
	AnalysisKeywords    AnalysisType = "keywords"
	AnalysisMatch       AnalysisType = "match"
	AnalysisCoverLetter AnalysisType = "coverLetter"
)

func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisOverview, AnalysisKeywords, AnalysisMatch, AnalysisCoverLetter:
		return true
	}
	return false
}

// Style is a word count and paragraph count target for a cover letter.
type Style struct {
	Label      string
	WordCount  int
	Paragraphs int
}

var ToneOptions = map[string]Style{
	"professional": {Label: "Professional", WordCount: 300, Paragraphs: 4},
	"friendly":     {Label: "Friendly", WordCount: 250, Paragraphs: 3},
	"enthusiastic": {Label: "Enthusiastic", WordCount: 350, Paragraphs: 4},
}

var LengthOptions = map[string]Style{
	"concise":  {Label: "Concise", WordCount: 200, Paragraphs: 3},
	"standard": {Label: "Standard", WordCount: 300, Paragraphs: 4},
	"detailed": {Label: "Detailed", WordCount: 400, Paragraphs: 5},
}

const (
	DefaultTone   = "professional"
	DefaultLength = "standard"
)

// Options only affect cover letters.
type Options struct {
	Tone              string
	Length            string
	CompanyName       string
	HiringManagerName string
	Achievements      string
}

// Generator is the model-facing collaborator used by every generation route.
type Generator interface {
	Analyze(ctx context.Context, resumeText, jobDescription string, analysisType AnalysisType, opts Options) (string, error)
	TailorResume(ctx context.Context, resumeText, jobDescription string) (*TailoredResume, error)
}
