package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const unexpectedFormatOverview = "Analysis completed but response format was unexpected. Please try again."

// MaxSkillsPerCategory caps each list returned by NormalizeSkills.
const MaxSkillsPerCategory = 30

var (
	jsonObject  = regexp.MustCompile(`(?s)\{.*\}`)
	fallbackPct = regexp.MustCompile(`(\d{1,3})%`)
)

type SkillsMatch struct {
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// MatchAnalysis is the normalized shape of a match analysis. JobTitle and
// CompanyName are nil when the model did not find them.
type MatchAnalysis struct {
	JobTitle        *string     `json:"jobTitle"`
	CompanyName     *string     `json:"companyName"`
	MatchScore      float64     `json:"matchScore"`
	Overview        string      `json:"overview"`
	Strengths       []string    `json:"strengths"`
	Weaknesses      []string    `json:"weaknesses"`
	SkillsMatch     SkillsMatch `json:"skillsMatch"`
	Recommendations []string    `json:"recommendations"`
}

// extractJSON strips markdown fences and returns the outermost {...} span.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[3:]
	}
	s = strings.TrimSuffix(s, "```")
	if m := jsonObject.FindString(s); m != "" {
		s = m
	}
	return strings.TrimSpace(s)
}

// NormalizeMatch parses a model's match analysis. It never fails: output
// that is not JSON degrades to a score scraped from an "NN%" token.
func NormalizeMatch(raw string) MatchAnalysis {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		out := MatchAnalysis{
			Overview:        unexpectedFormatOverview,
			Strengths:       []string{},
			Weaknesses:      []string{},
			SkillsMatch:     SkillsMatch{Matched: []string{}, Missing: []string{}},
			Recommendations: []string{},
		}
		if m := fallbackPct.FindStringSubmatch(raw); m != nil {
			out.MatchScore, _ = strconv.ParseFloat(m[1], 64)
		}
		return out
	}
	return normalizeParsedMatch(parsed)
}

func normalizeParsedMatch(parsed map[string]any) MatchAnalysis {
	out := MatchAnalysis{
		JobTitle:        optionalString(parsed["jobTitle"]),
		CompanyName:     optionalString(parsed["companyName"]),
		Strengths:       stringList(parsed["strengths"]),
		Weaknesses:      stringList(parsed["weaknesses"]),
		Recommendations: stringList(parsed["recommendations"]),
	}
	if score, ok := parsed["matchScore"].(float64); ok {
		out.MatchScore = score
	}
	if overview, ok := parsed["overview"].(string); ok {
		out.Overview = overview
	}
	sm, _ := parsed["skillsMatch"].(map[string]any)
	out.SkillsMatch = SkillsMatch{
		Matched: stringList(sm["matched"]),
		Missing: stringList(sm["missing"]),
	}
	return out
}

func optionalString(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

// stringList keeps the string elements of a JSON array. It never returns nil
// so the field encodes as [] rather than null.
func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Skills is the keyword extraction result.
type Skills struct {
	TechnicalSkills  []string `json:"technical_skills"`
	AnalyticalSkills []string `json:"analytical_skills"`
	SoftSkills       []string `json:"soft_skills"`
}

// NormalizeSkills parses a keyword extraction. ok is false when raw holds no
// usable JSON object; callers then fall back to the raw text.
func NormalizeSkills(raw string) (Skills, bool) {
	m := jsonObject.FindString(raw)
	if m == "" {
		return Skills{}, false
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(m), &parsed); err != nil {
		return Skills{}, false
	}
	return Skills{
		TechnicalSkills:  capList(stringList(parsed["technical_skills"])),
		AnalyticalSkills: capList(stringList(parsed["analytical_skills"])),
		SoftSkills:       capList(stringList(parsed["soft_skills"])),
	}, true
}

func capList(in []string) []string {
	if len(in) > MaxSkillsPerCategory {
		return in[:MaxSkillsPerCategory]
	}
	return in
}

type SectionItem struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Date     string   `json:"date,omitempty"`
	Location string   `json:"location,omitempty"`
	Bullets  []string `json:"bullets"`
}

// TailoredResume is the structured resume the LaTeX builder renders.
type TailoredResume struct {
	FullName       string        `json:"fullName,omitempty"`
	Email          string        `json:"email,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	Location       string        `json:"location,omitempty"`
	LinkedIn       string        `json:"linkedin,omitempty"`
	GitHub         string        `json:"github,omitempty"`
	Website        string        `json:"website,omitempty"`
	TargetTitle    string        `json:"targetTitle,omitempty"`
	Summary        string        `json:"summary"`
	Skills         []string      `json:"skills"`
	Experience     []SectionItem `json:"experience"`
	Projects       []SectionItem `json:"projects"`
	Education      []SectionItem `json:"education"`
	Certifications []string      `json:"certifications"`
	Additional     []string      `json:"additional"`
	KeywordsUsed   []string      `json:"keywordsUsed"`
}

// ParseTailoredResume decodes the model's structured resume. Unlike match
// analyses there is no useful fallback, so bad JSON is an error.
func ParseTailoredResume(raw string) (*TailoredResume, error) {
	var r TailoredResume
	if err := json.Unmarshal([]byte(extractJSON(raw)), &r); err != nil {
		return nil, fmt.Errorf("parse tailored resume: %w", err)
	}
	if strings.TrimSpace(r.FullName) == "" && strings.TrimSpace(r.Summary) == "" && len(r.Experience) == 0 {
		return nil, fmt.Errorf("parse tailored resume: model returned an empty resume")
	}
	return &r, nil
}
