// Package db persists generation results so identical requests can be served
// across instances and restarts. Lookups read the most recent matching row;
// duplicate rows for the same logical key are tolerated.
package db

import (
	"context"
	"errors"

	"github.com/HanTheDev/resumatch/internal/models"
)

var (
	ErrNotFound  = errors.New("db: record not found")
	ErrForbidden = errors.New("db: record owned by another user")
)

type Collection string

const (
	CollectionAnalyses        Collection = "analyses"
	CollectionCoverLetters    Collection = "cover_letters"
	CollectionTailoredResumes Collection = "tailored_resumes"
)

// HistoryType is the name a collection goes by in history listings.
func (c Collection) HistoryType() string {
	switch c {
	case CollectionAnalyses:
		return "analysis"
	case CollectionCoverLetters:
		return "cover-letter"
	case CollectionTailoredResumes:
		return "tailored-resume"
	}
	return ""
}

type AnalysisLookup struct {
	UserID             string
	ResumeHash         string
	JobDescriptionHash string
	AnalysisType       string
}

type CoverLetterLookup struct {
	UserID             string
	ResumeHash         string
	JobDescriptionHash string
	Tone               string
	Length             string
}

type TailoredResumeLookup struct {
	UserID             string
	ResumeHash         string
	JobDescriptionHash string
	TemplateID         string
}

// Store is the persistent tier. Find* return ErrNotFound on a miss.
type Store interface {
	FindAnalysis(ctx context.Context, l AnalysisLookup) (*models.Analysis, error)
	SaveAnalysis(ctx context.Context, a *models.Analysis) (string, error)
	FindCoverLetter(ctx context.Context, l CoverLetterLookup) (*models.CoverLetter, error)
	SaveCoverLetter(ctx context.Context, c *models.CoverLetter) (string, error)
	FindTailoredResume(ctx context.Context, l TailoredResumeLookup) (*models.TailoredResume, error)
	SaveTailoredResume(ctx context.Context, r *models.TailoredResume) (string, error)
	ListHistory(ctx context.Context, userID string, limit int) ([]models.HistoryItem, error)
	// Get returns ErrNotFound for unknown ids and ErrForbidden for rows
	// owned by someone else.
	Get(ctx context.Context, c Collection, userID, id string) (*models.HistoryItem, error)
	UserStats(ctx context.Context, userID string) (*models.UserStats, error)
	Delete(ctx context.Context, c Collection, userID, id string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}
