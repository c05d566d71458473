package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/HanTheDev/resumatch/internal/models"
)

// Queries use $n placeholders in argument order; the SQLite store rebinds
// them to ?.
const (
	findAnalysisQuery = `
        SELECT id, user_id, resume_hash, job_description_hash, analysis_type, result,
               resume_name, job_title, company_name, job_description, created_at
        FROM analyses
        WHERE user_id = $1 AND resume_hash = $2 AND job_description_hash = $3 AND analysis_type = $4
        ORDER BY id DESC
        LIMIT 1
    `

	insertAnalysisQuery = `
        INSERT INTO analyses (user_id, resume_hash, job_description_hash, analysis_type, result,
                              resume_name, job_title, company_name, job_description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `

	findCoverLetterQuery = `
        SELECT id, user_id, resume_hash, job_description_hash, tone, length, result,
               company_name, hiring_manager_name, resume_name, job_description, created_at
        FROM cover_letters
        WHERE user_id = $1 AND resume_hash = $2 AND job_description_hash = $3 AND tone = $4 AND length = $5
        ORDER BY id DESC
        LIMIT 1
    `

	insertCoverLetterQuery = `
        INSERT INTO cover_letters (user_id, resume_hash, job_description_hash, tone, length, result,
                                   company_name, hiring_manager_name, resume_name, job_description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `

	findTailoredResumeQuery = `
        SELECT id, user_id, resume_hash, job_description_hash, template_id, structured_data, latex_source,
               job_title, company_name, resume_name, job_description, created_at
        FROM tailored_resumes
        WHERE user_id = $1 AND resume_hash = $2 AND job_description_hash = $3 AND template_id = $4
        ORDER BY id DESC
        LIMIT 1
    `

	insertTailoredResumeQuery = `
        INSERT INTO tailored_resumes (user_id, resume_hash, job_description_hash, template_id, structured_data,
                                      latex_source, job_title, company_name, resume_name, job_description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `

	listAnalysesQuery = `
        SELECT id, analysis_type, company_name, resume_name, job_title, result, created_at
        FROM analyses
        WHERE user_id = $1
        ORDER BY id DESC
        LIMIT $2
    `

	listCoverLettersQuery = `
        SELECT id, company_name, resume_name, result, created_at
        FROM cover_letters
        WHERE user_id = $1
        ORDER BY id DESC
        LIMIT $2
    `

	listTailoredResumesQuery = `
        SELECT id, template_id, company_name, resume_name, job_title, latex_source, created_at
        FROM tailored_resumes
        WHERE user_id = $1
        ORDER BY id DESC
        LIMIT $2
    `

	countRowsQuery = `SELECT COUNT(*) FROM %s WHERE user_id = $1`

	listMatchResultsQuery = `
        SELECT result FROM analyses
        WHERE user_id = $1 AND analysis_type = 'match'
    `
)

// getItemQueries select one row by id in a shared column order:
// id, user_id, detail, company_name, resume_name, job_title, result,
// job_description, created_at.
var getItemQueries = map[Collection]string{
	CollectionAnalyses: `
        SELECT id, user_id, analysis_type, company_name, resume_name, job_title, result, job_description, created_at
        FROM analyses WHERE id = $1
    `,
	CollectionCoverLetters: `
        SELECT id, user_id, '', company_name, resume_name, '', result, job_description, created_at
        FROM cover_letters WHERE id = $1
    `,
	CollectionTailoredResumes: `
        SELECT id, user_id, template_id, company_name, resume_name, job_title, latex_source, job_description, created_at
        FROM tailored_resumes WHERE id = $1
    `,
}

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsScanner interface {
	rowScanner
	Next() bool
	Err() error
}

// querier hides the differences between pgxpool and database/sql.
type querier interface {
	queryRow(ctx context.Context, sql string, args ...any) rowScanner
	query(ctx context.Context, sql string, args ...any) (rowsScanner, func(), error)
	exec(ctx context.Context, sql string, args ...any) (int64, error)
	isNoRows(err error) bool
}

// sqlStore implements Store on top of a querier.
type sqlStore struct {
	q querier
}

func (s *sqlStore) FindAnalysis(ctx context.Context, l AnalysisLookup) (*models.Analysis, error) {
	var a models.Analysis
	var id int64
	err := s.q.queryRow(ctx, findAnalysisQuery, l.UserID, l.ResumeHash, l.JobDescriptionHash, l.AnalysisType).Scan(
		&id,
		&a.UserID,
		&a.ResumeHash,
		&a.JobDescriptionHash,
		&a.AnalysisType,
		&a.Result,
		&a.ResumeName,
		&a.JobTitle,
		&a.CompanyName,
		&a.JobDescription,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, s.wrapRowErr("find analysis", err)
	}
	a.ID = strconv.FormatInt(id, 10)
	return &a, nil
}

func (s *sqlStore) SaveAnalysis(ctx context.Context, a *models.Analysis) (string, error) {
	return s.insert(ctx, "save analysis", insertAnalysisQuery,
		a.UserID,
		a.ResumeHash,
		a.JobDescriptionHash,
		a.AnalysisType,
		a.Result,
		a.ResumeName,
		a.JobTitle,
		a.CompanyName,
		a.JobDescription,
		time.Now().UTC(),
	)
}

func (s *sqlStore) FindCoverLetter(ctx context.Context, l CoverLetterLookup) (*models.CoverLetter, error) {
	var c models.CoverLetter
	var id int64
	err := s.q.queryRow(ctx, findCoverLetterQuery, l.UserID, l.ResumeHash, l.JobDescriptionHash, l.Tone, l.Length).Scan(
		&id,
		&c.UserID,
		&c.ResumeHash,
		&c.JobDescriptionHash,
		&c.Tone,
		&c.Length,
		&c.Result,
		&c.CompanyName,
		&c.HiringManagerName,
		&c.ResumeName,
		&c.JobDescription,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, s.wrapRowErr("find cover letter", err)
	}
	c.ID = strconv.FormatInt(id, 10)
	return &c, nil
}

func (s *sqlStore) SaveCoverLetter(ctx context.Context, c *models.CoverLetter) (string, error) {
	return s.insert(ctx, "save cover letter", insertCoverLetterQuery,
		c.UserID,
		c.ResumeHash,
		c.JobDescriptionHash,
		c.Tone,
		c.Length,
		c.Result,
		c.CompanyName,
		c.HiringManagerName,
		c.ResumeName,
		c.JobDescription,
		time.Now().UTC(),
	)
}

func (s *sqlStore) FindTailoredResume(ctx context.Context, l TailoredResumeLookup) (*models.TailoredResume, error) {
	var r models.TailoredResume
	var id int64
	err := s.q.queryRow(ctx, findTailoredResumeQuery, l.UserID, l.ResumeHash, l.JobDescriptionHash, l.TemplateID).Scan(
		&id,
		&r.UserID,
		&r.ResumeHash,
		&r.JobDescriptionHash,
		&r.TemplateID,
		&r.StructuredData,
		&r.LatexSource,
		&r.JobTitle,
		&r.CompanyName,
		&r.ResumeName,
		&r.JobDescription,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, s.wrapRowErr("find tailored resume", err)
	}
	r.ID = strconv.FormatInt(id, 10)
	return &r, nil
}

func (s *sqlStore) SaveTailoredResume(ctx context.Context, r *models.TailoredResume) (string, error) {
	return s.insert(ctx, "save tailored resume", insertTailoredResumeQuery,
		r.UserID,
		r.ResumeHash,
		r.JobDescriptionHash,
		r.TemplateID,
		r.StructuredData,
		r.LatexSource,
		r.JobTitle,
		r.CompanyName,
		r.ResumeName,
		r.JobDescription,
		time.Now().UTC(),
	)
}

// ListHistory merges the newest analyses, cover letters and tailored
// resumes, newest first.
func (s *sqlStore) ListHistory(ctx context.Context, userID string, limit int) ([]models.HistoryItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	items := []models.HistoryItem{}
	err := s.scanAll(ctx, listAnalysesQuery, []any{userID, limit}, func(rows rowScanner) error {
		item := models.HistoryItem{Type: CollectionAnalyses.HistoryType()}
		var id int64
		if err := rows.Scan(&id, &item.AnalysisType, &item.CompanyName, &item.ResumeName, &item.JobTitle, &item.Result, &item.CreatedAt); err != nil {
			return err
		}
		item.ID = strconv.FormatInt(id, 10)
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	err = s.scanAll(ctx, listCoverLettersQuery, []any{userID, limit}, func(rows rowScanner) error {
		item := models.HistoryItem{Type: CollectionCoverLetters.HistoryType()}
		var id int64
		if err := rows.Scan(&id, &item.CompanyName, &item.ResumeName, &item.Result, &item.CreatedAt); err != nil {
			return err
		}
		item.ID = strconv.FormatInt(id, 10)
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list cover letters: %w", err)
	}

	err = s.scanAll(ctx, listTailoredResumesQuery, []any{userID, limit}, func(rows rowScanner) error {
		item := models.HistoryItem{Type: CollectionTailoredResumes.HistoryType()}
		var id int64
		if err := rows.Scan(&id, &item.TemplateID, &item.CompanyName, &item.ResumeName, &item.JobTitle, &item.Result, &item.CreatedAt); err != nil {
			return err
		}
		item.ID = strconv.FormatInt(id, 10)
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tailored resumes: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *sqlStore) scanAll(ctx context.Context, query string, args []any, each func(rowScanner) error) error {
	rows, closeRows, err := s.q.query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer closeRows()

	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Delete removes a row owned by userID. Unknown ids report false.
func (s *sqlStore) Delete(ctx context.Context, c Collection, userID, id string) (bool, error) {
	switch c {
	case CollectionAnalyses, CollectionCoverLetters, CollectionTailoredResumes:
	default:
		return false, fmt.Errorf("delete: unknown collection %q", c)
	}

	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false, nil
	}

	// c is one of the constants above, never caller text.
	query := `DELETE FROM ` + string(c) + ` WHERE id = $1 AND user_id = $2`
	n, err := s.q.exec(ctx, query, rowID, userID)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", c, err)
	}
	return n > 0, nil
}

// Get fetches one history item. The row is read by id alone so a foreign
// row can be told apart from a missing one.
func (s *sqlStore) Get(ctx context.Context, c Collection, userID, id string) (*models.HistoryItem, error) {
	query, ok := getItemQueries[c]
	if !ok {
		return nil, fmt.Errorf("get: unknown collection %q", c)
	}
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}

	item := models.HistoryItem{ID: id, Type: c.HistoryType()}
	var owner, detail string
	err = s.q.queryRow(ctx, query, rowID).Scan(
		&rowID,
		&owner,
		&detail,
		&item.CompanyName,
		&item.ResumeName,
		&item.JobTitle,
		&item.Result,
		&item.JobDescription,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, s.wrapRowErr("get "+string(c), err)
	}
	if owner != userID {
		return nil, ErrForbidden
	}
	switch c {
	case CollectionAnalyses:
		item.AnalysisType = detail
	case CollectionTailoredResumes:
		item.TemplateID = detail
	}
	return &item, nil
}

// UserStats counts stored generations and averages the scores of match
// analyses. Match rows whose result carries no score are skipped.
func (s *sqlStore) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats := &models.UserStats{}
	counts := []struct {
		c   Collection
		dst *int
	}{
		{CollectionAnalyses, &stats.AnalysisCount},
		{CollectionCoverLetters, &stats.CoverLetterCount},
		{CollectionTailoredResumes, &stats.TailoredResumeCount},
	}
	for _, n := range counts {
		var count int64
		// c is one of the constants above, never caller text.
		if err := s.q.queryRow(ctx, fmt.Sprintf(countRowsQuery, n.c), userID).Scan(&count); err != nil {
			return nil, fmt.Errorf("count %s: %w", n.c, err)
		}
		*n.dst = int(count)
	}

	var sum float64
	var scored int
	err := s.scanAll(ctx, listMatchResultsQuery, []any{userID}, func(rows rowScanner) error {
		var result string
		if err := rows.Scan(&result); err != nil {
			return err
		}
		if score, ok := matchScore(result); ok {
			sum += score
			scored++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list match results: %w", err)
	}
	if scored > 0 {
		avg := int(math.Round(sum / float64(scored)))
		stats.AverageMatchScore = &avg
	}
	return stats, nil
}

// matchScore reads matchScore from a stored match analysis.
func matchScore(result string) (float64, bool) {
	var parsed struct {
		MatchScore *float64 `json:"matchScore"`
	}
	if err := json.Unmarshal([]byte(result), &parsed); err != nil || parsed.MatchScore == nil {
		return 0, false
	}
	return *parsed.MatchScore, true
}

func (s *sqlStore) insert(ctx context.Context, op, query string, args ...any) (string, error) {
	var id int64
	if err := s.q.queryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *sqlStore) wrapRowErr(op string, err error) error {
	if s.q.isNoRows(err) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
