package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/HanTheDev/resumatch/internal/models"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "store_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRebind(t *testing.T) {
	got := rebind("WHERE a = $1 AND b = $2 LIMIT $10")
	if got != "WHERE a = ? AND b = ? LIMIT ?" {
		t.Errorf("unexpected rebind: %s", got)
	}
}

func TestAnalysis_SaveAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveAnalysis(ctx, &models.Analysis{
		UserID:             "u1",
		ResumeHash:         "rh",
		JobDescriptionHash: "jh",
		AnalysisType:       "match",
		Result:             `{"matchScore":80}`,
		ResumeName:         "cv.pdf",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.FindAnalysis(ctx, AnalysisLookup{UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", AnalysisType: "match"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.Result != `{"matchScore":80}` || got.ResumeName != "cv.pdf" {
		t.Errorf("unexpected analysis %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at")
	}

	misses := []AnalysisLookup{
		{UserID: "u2", ResumeHash: "rh", JobDescriptionHash: "jh", AnalysisType: "match"},
		{UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", AnalysisType: "overview"},
		{UserID: "u1", ResumeHash: "other", JobDescriptionHash: "jh", AnalysisType: "match"},
	}
	for _, l := range misses {
		if _, err := s.FindAnalysis(ctx, l); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for %+v, got %v", l, err)
		}
	}
}

func TestAnalysis_MostRecentDuplicateWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := models.Analysis{UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", AnalysisType: "overview"}

	first := base
	first.Result = "first"
	second := base
	second.Result = "second"
	if _, err := s.SaveAnalysis(ctx, &first); err != nil {
		t.Fatal(err)
	}
	secondID, err := s.SaveAnalysis(ctx, &second)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.FindAnalysis(ctx, AnalysisLookup{UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", AnalysisType: "overview"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != secondID || got.Result != "second" {
		t.Errorf("expected most recent row, got %+v", got)
	}
}

func TestCoverLetter_LookupIncludesStyle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveCoverLetter(ctx, &models.CoverLetter{
		UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", Tone: "professional", Length: "standard", Result: "Dear Hiring Manager",
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindCoverLetter(ctx, CoverLetterLookup{UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", Tone: "professional", Length: "standard"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Result != "Dear Hiring Manager" {
		t.Errorf("unexpected result %q", got.Result)
	}

	if _, err := s.FindCoverLetter(ctx, CoverLetterLookup{UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", Tone: "friendly", Length: "standard"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected tone to be part of the lookup, got %v", err)
	}
}

func TestTailoredResume_SaveAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveTailoredResume(ctx, &models.TailoredResume{
		UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", TemplateID: "deedy-modern",
		StructuredData: `{"fullName":"Ada"}`, LatexSource: `\documentclass{article}`,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.FindTailoredResume(ctx, TailoredResumeLookup{UserID: "u1", ResumeHash: "rh", JobDescriptionHash: "jh", TemplateID: "deedy-modern"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.StructuredData != `{"fullName":"Ada"}` {
		t.Errorf("unexpected resume %+v", got)
	}
}

func TestHistoryAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	aID, _ := s.SaveAnalysis(ctx, &models.Analysis{UserID: "u1", ResumeHash: "r", JobDescriptionHash: "j", AnalysisType: "match", Result: "{}"})
	cID, _ := s.SaveCoverLetter(ctx, &models.CoverLetter{UserID: "u1", ResumeHash: "r", JobDescriptionHash: "j", Tone: "professional", Length: "standard", Result: "letter"})
	rID, _ := s.SaveTailoredResume(ctx, &models.TailoredResume{UserID: "u1", ResumeHash: "r", JobDescriptionHash: "j", TemplateID: "sb2nov-ats", StructuredData: "{}", LatexSource: `\documentclass{article}`, JobTitle: "Engineer"})
	_, _ = s.SaveAnalysis(ctx, &models.Analysis{UserID: "u2", ResumeHash: "r", JobDescriptionHash: "j", AnalysisType: "match", Result: "{}"})

	items, err := s.ListHistory(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items for u1, got %d", len(items))
	}
	var resume *models.HistoryItem
	for i := range items {
		if items[i].Type == "tailored-resume" {
			resume = &items[i]
		}
	}
	if resume == nil || resume.ID != rID || resume.TemplateID != "sb2nov-ats" || resume.JobTitle != "Engineer" {
		t.Errorf("expected the tailored resume in history, got %+v", items)
	}

	ok, err := s.Delete(ctx, CollectionTailoredResumes, "u1", rID)
	if err != nil || !ok {
		t.Errorf("expected tailored resume delete, got ok=%v err=%v", ok, err)
	}

	ok, err = s.Delete(ctx, CollectionAnalyses, "u2", aID)
	if err != nil || ok {
		t.Errorf("expected other user's delete to miss, got ok=%v err=%v", ok, err)
	}
	ok, err = s.Delete(ctx, CollectionAnalyses, "u1", aID)
	if err != nil || !ok {
		t.Errorf("expected delete, got ok=%v err=%v", ok, err)
	}
	ok, _ = s.Delete(ctx, CollectionCoverLetters, "u1", "not-a-number")
	if ok {
		t.Error("expected invalid id to report false")
	}
	if _, err := s.Delete(ctx, Collection("users"), "u1", cID); err == nil {
		t.Error("expected error for unknown collection")
	}

	items, _ = s.ListHistory(ctx, "u1", 10)
	if len(items) != 1 || items[0].Type != "cover-letter" {
		t.Errorf("expected only the cover letter left, got %+v", items)
	}
}

func TestGet_OwnershipAndMisses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	aID, _ := s.SaveAnalysis(ctx, &models.Analysis{
		UserID: "u1", ResumeHash: "r", JobDescriptionHash: "j", AnalysisType: "keywords",
		Result: "Go, SQL", CompanyName: "Acme", JobDescription: "Build services",
	})
	cID, _ := s.SaveCoverLetter(ctx, &models.CoverLetter{
		UserID: "u1", ResumeHash: "r", JobDescriptionHash: "j", Tone: "friendly", Length: "concise", Result: "letter",
	})

	item, err := s.Get(ctx, CollectionAnalyses, "u1", aID)
	if err != nil {
		t.Fatal(err)
	}
	if item.Type != "analysis" || item.AnalysisType != "keywords" || item.JobDescription != "Build services" || item.CompanyName != "Acme" {
		t.Errorf("unexpected item %+v", item)
	}

	letter, err := s.Get(ctx, CollectionCoverLetters, "u1", cID)
	if err != nil {
		t.Fatal(err)
	}
	if letter.Type != "cover-letter" || letter.Result != "letter" {
		t.Errorf("unexpected cover letter %+v", letter)
	}

	if _, err := s.Get(ctx, CollectionAnalyses, "u2", aID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for another user, got %v", err)
	}
	if _, err := s.Get(ctx, CollectionAnalyses, "u1", "999"); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
	if _, err := s.Get(ctx, CollectionAnalyses, "u1", "abc"); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound for malformed id, got %v", err)
	}
	if _, err := s.Get(ctx, Collection("users"), "u1", aID); err == nil {
		t.Error("expected error for unknown collection")
	}
}

func TestUserStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.UserStats(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if empty.AnalysisCount != 0 || empty.AverageMatchScore != nil {
		t.Errorf("expected empty stats, got %+v", empty)
	}

	save := func(kind, result string) {
		t.Helper()
		if _, err := s.SaveAnalysis(ctx, &models.Analysis{UserID: "u1", ResumeHash: "r", JobDescriptionHash: "j", AnalysisType: kind, Result: result}); err != nil {
			t.Fatal(err)
		}
	}
	save("match", `{"matchScore": 70}`)
	save("match", `{"matchScore": 85.5}`)
	save("match", `not json`)
	save("overview", `{"matchScore": 10}`)
	_, _ = s.SaveCoverLetter(ctx, &models.CoverLetter{UserID: "u1", ResumeHash: "r", JobDescriptionHash: "j", Tone: "professional", Length: "standard", Result: "letter"})
	_, _ = s.SaveAnalysis(ctx, &models.Analysis{UserID: "u2", ResumeHash: "r", JobDescriptionHash: "j", AnalysisType: "match", Result: `{"matchScore": 0}`})

	stats, err := s.UserStats(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.AnalysisCount != 4 || stats.CoverLetterCount != 1 || stats.TailoredResumeCount != 0 {
		t.Errorf("unexpected counts %+v", stats)
	}
	// (70 + 85.5) / 2 = 77.75
	if stats.AverageMatchScore == nil || *stats.AverageMatchScore != 78 {
		t.Errorf("expected average 78, got %v", stats.AverageMatchScore)
	}
}
