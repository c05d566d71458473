package models

import "time"

// Analysis is a persisted overview, keywords or match result. Result holds
// text, or JSON for structured analyses.
type Analysis struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	ResumeHash         string    `json:"resume_hash"`
	JobDescriptionHash string    `json:"job_description_hash"`
	AnalysisType       string    `json:"analysis_type"`
	Result             string    `json:"result"`
	ResumeName         string    `json:"resume_name,omitempty"`
	JobTitle           string    `json:"job_title,omitempty"`
	CompanyName        string    `json:"company_name,omitempty"`
	JobDescription     string    `json:"job_description,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type CoverLetter struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	ResumeHash         string    `json:"resume_hash"`
	JobDescriptionHash string    `json:"job_description_hash"`
	Tone               string    `json:"tone"`
	Length             string    `json:"length"`
	Result             string    `json:"result"`
	CompanyName        string    `json:"company_name,omitempty"`
	HiringManagerName  string    `json:"hiring_manager_name,omitempty"`
	ResumeName         string    `json:"resume_name,omitempty"`
	JobDescription     string    `json:"job_description,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// TailoredResume keeps the structured model output as JSON next to the
// LaTeX built from it.
type TailoredResume struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	ResumeHash         string    `json:"resume_hash"`
	JobDescriptionHash string    `json:"job_description_hash"`
	TemplateID         string    `json:"template_id"`
	StructuredData     string    `json:"structured_data"`
	LatexSource        string    `json:"latex_source"`
	JobTitle           string    `json:"job_title,omitempty"`
	CompanyName        string    `json:"company_name,omitempty"`
	ResumeName         string    `json:"resume_name,omitempty"`
	JobDescription     string    `json:"job_description,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// HistoryItem is one row of a user's generation history.
type HistoryItem struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	AnalysisType string `json:"analysisType,omitempty"`
	CompanyName  string `json:"companyName,omitempty"`
	ResumeName   string `json:"resumeName,omitempty"`
	JobTitle     string `json:"jobTitle,omitempty"`
	TemplateID   string `json:"templateId,omitempty"`
	// JobDescription is only filled when a single item is fetched.
	JobDescription string    `json:"jobDescription,omitempty"`
	Result         string    `json:"result"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UserStats summarizes a user's stored generations. AverageMatchScore is nil
// until at least one match analysis carries a score.
type UserStats struct {
	AnalysisCount       int  `json:"analysisCount"`
	CoverLetterCount    int  `json:"coverLetterCount"`
	TailoredResumeCount int  `json:"tailoredResumeCount"`
	AverageMatchScore   *int `json:"averageMatchScore"`
}
