package generation

import (
	"fmt"
	"strings"
)

const overviewPrompt = `You are an experienced Technical Human Resource Manager. Your task is to evaluate the provided resume against the job description.

Please provide a professional evaluation using EXACTLY this format:

**Summary**
Write a 2-3 sentence summary of the candidate's profile and background.

**Strengths**
* First strength with explanation
* Second strength with explanation
* Third strength with explanation
(Add more bullet points as needed, each starting with *)

**Areas for Improvement**
* First area for improvement with explanation
* Second area for improvement with explanation
* Third area for improvement with explanation
(Add more bullet points as needed, each starting with *)

**Experience Overview**
Write 2-3 sentences summarizing the candidate's professional experience.

**Education**
Write 1-2 sentences about the candidate's educational background.

**Overall Assessment**
Write 2-3 sentences providing a final assessment of the candidate's fit for the role.

**Recommendation**
Write 1-2 sentences with your recommendation on next steps.

IMPORTANT: Use bullet points (*) for strengths and improvements. Keep explanations clear and actionable.`

const keywordsPrompt = `You are a skilled ATS (Applicant Tracking System) scanner with expertise in understanding technical requirements.
Analyze the resume text and job description to extract relevant skills and keywords.
Return a JSON object with exactly this structure:
{
  "technical_skills": ["skill1", "skill2", ...],
  "analytical_skills": ["skill1", "skill2", ...],
  "soft_skills": ["skill1", "skill2", ...]
}
Rules:
- Maximum 30 skills per category
- Only include skills mentioned in either the resume OR job description
- Group related concepts and prioritize the most representative skill
- Return ONLY the JSON object, no additional text`

const matchPrompt = `You are an expert ATS scanner. Analyze how well the resume matches the job description.

CRITICAL: You MUST respond with ONLY a JSON object. No text before or after. No markdown. No explanation.

{
  "jobTitle": "Job Title (if mentioned, else null)",
  "companyName": "Company Name (if mentioned, else null)",
  "matchScore": 75,
  "overview": "Brief 2-3 sentence summary of fit",
  "strengths": ["strength 1", "strength 2", "strength 3"],
  "weaknesses": ["weakness 1", "weakness 2", "weakness 3"],
  "skillsMatch": {
    "matched": ["skill1", "skill2", "skill3"],
    "missing": ["skill1", "skill2", "skill3"]
  },
  "recommendations": ["recommendation 1", "recommendation 2", "recommendation 3"]
}

Rules:
- jobTitle: Extract the exact job title from the job description
- companyName: Extract the company name if mentioned in job description
- matchScore: integer 0-100
- overview: concise summary (max 100 words)
- strengths: 3-5 specific strengths from resume
- weaknesses: 3-5 gaps or areas to improve
- matched: skills from job description found in resume
- missing: important skills from job description NOT in resume
- recommendations: 3-5 actionable suggestions

RESPOND WITH ONLY THE JSON OBJECT. NO OTHER TEXT.`

const tailoredResumePrompt = `You are an expert resume writer. Rewrite the candidate's resume so it targets the job description.

Respond with ONLY a JSON object with this structure:
{
  "fullName": "string",
  "email": "string",
  "phone": "string",
  "location": "string",
  "linkedin": "string",
  "github": "string",
  "website": "string",
  "targetTitle": "string",
  "summary": "string",
  "skills": ["skill"],
  "experience": [{"title": "string", "subtitle": "string", "date": "string", "location": "string", "bullets": ["string"]}],
  "projects": [{"title": "string", "subtitle": "string", "date": "string", "location": "string", "bullets": ["string"]}],
  "education": [{"title": "string", "subtitle": "string", "date": "string", "location": "string", "bullets": ["string"]}],
  "certifications": ["string"],
  "additional": ["string"],
  "keywordsUsed": ["string"]
}

Rules:
- Only use information present in the resume; never invent employers, dates or degrees
- Reword bullets to surface the job description's keywords where they are truthful
- Keep at most 6 bullets per entry
- Omit fields that the resume does not support
- RESPOND WITH ONLY THE JSON OBJECT. NO OTHER TEXT.`

func coverLetterPrompt(opts Options) string {
	tone, ok := ToneOptions[opts.Tone]
	if !ok {
		tone = ToneOptions[DefaultTone]
	}
	length, ok := LengthOptions[opts.Length]
	if !ok {
		length = LengthOptions[DefaultLength]
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert career coach specializing in professional writing.
Generate a compelling cover letter that:
1. Aligns the candidate's resume achievements with job requirements
2. Uses a %s tone
3. Is approximately %d words
4. Contains %d paragraphs
5. Written in first person
6. Only uses information from the provided resume - do not fabricate experiences`,
		strings.ToLower(tone.Label), length.WordCount, length.Paragraphs)

	if opts.HiringManagerName != "" {
		fmt.Fprintf(&b, "\n7. Address the letter to %s", opts.HiringManagerName)
	} else {
		b.WriteString("\n7. Use \"Dear Hiring Manager\" as the greeting")
	}

	if opts.CompanyName != "" {
		fmt.Fprintf(&b, "\n8. Reference %s as the company name", opts.CompanyName)
	} else {
		b.WriteString("\n8. Use [Company Name] as a placeholder for the company name")
	}

	if opts.Achievements != "" {
		fmt.Fprintf(&b, "\n9. Emphasize these specific achievements: %s", opts.Achievements)
	}

	b.WriteString("\n\nFocus on demonstrating value and fit for the role. Include a proper greeting and closing.")
	return b.String()
}

func promptFor(analysisType AnalysisType, opts Options) (string, error) {
	switch analysisType {
	case AnalysisOverview:
		return overviewPrompt, nil
	case AnalysisKeywords:
		return keywordsPrompt, nil
	case AnalysisMatch:
		return matchPrompt, nil
	case AnalysisCoverLetter:
		return coverLetterPrompt(opts), nil
	}
	return "", fmt.Errorf("invalid analysis type %q", analysisType)
}

func withInputs(prompt, resumeText, jobDescription string) string {
	return prompt + "\n\nResume:\n" + resumeText + "\n\nJob Description:\n" + jobDescription
}
