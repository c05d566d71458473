// Package latex renders a tailored resume into LaTeX source for one of the
// built-in templates.
package latex

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/HanTheDev/resumatch/internal/generation"
)

const (
	TemplateAwesomeClassic = "awesome-classic"
	TemplateDeedyModern    = "deedy-modern"
	TemplateSB2NovATS      = "sb2nov-ats"

	DefaultTemplate = TemplateAwesomeClassic
)

var preambles = map[string]string{
	TemplateAwesomeClassic: `\documentclass[11pt]{article}
\usepackage[margin=0.7in]{geometry}
\usepackage{enumitem}
\usepackage[T1]{fontenc}
\usepackage[utf8]{inputenc}
\usepackage{lmodern}
\setlength{\parindent}{0pt}
\setlength{\parskip}{5pt}
\pagenumbering{gobble}
\begin{document}`,
	TemplateDeedyModern: `\documentclass[11pt]{article}
\usepackage[margin=0.65in]{geometry}
\usepackage{enumitem}
\usepackage[T1]{fontenc}
\usepackage[utf8]{inputenc}
\usepackage{lmodern}
\setlength{\parindent}{0pt}
\setlength{\parskip}{5pt}
\pagenumbering{gobble}
\begin{document}`,
	TemplateSB2NovATS: `\documentclass[11pt]{article}
\usepackage[margin=0.75in]{geometry}
\usepackage{enumitem}
\usepackage[T1]{fontenc}
\usepackage[utf8]{inputenc}
\usepackage{helvet}
\renewcommand{\familydefault}{\sfdefault}
\setlength{\parindent}{0pt}
\setlength{\parskip}{4pt}
\pagenumbering{gobble}
\begin{document}`,
}

// ValidTemplate reports whether id names a built-in template.
func ValidTemplate(id string) bool {
	_, ok := preambles[id]
	return ok
}

const (
	maxSkills         = 18
	maxExperience     = 5
	maxProjects       = 4
	maxEducation      = 3
	maxCertifications = 8
	maxAdditional     = 8
	maxBullets        = 6
)

// The template uses [[ ]] delimiters since LaTeX is full of braces.
const resumeTemplate = `[[define "entry"]][[if .Right]]\textbf{[[esc .Title]]} [[if .Subtitle]]\textit{[[esc .Subtitle]]}[[end]] \hfill [[esc .Right]][[else]]\textbf{[[esc .Title]]}[[if .Subtitle]] -- \textbf{[[esc .Subtitle]]}[[end]][[end]]
[[- if .Bullets]]
\begin{itemize}[leftmargin=*, itemsep=2pt, topsep=3pt]
[[range .Bullets]]\item [[esc .]]
[[end]]\end{itemize}
[[- end]][[end]]

[[- define "entries"]][[range $i, $e := .]][[if $i]]

[[end]][[template "entry" $e]][[end]][[end]]

[[- define "bullets"]][[range $i, $b := .]][[if $i]]\\
[[end]]\textbullet{} [[esc $b]][[end]][[end]]

[[- define "resume"]][[.Preamble]]
\begin{center}
{\LARGE \textbf{[[esc .Name]]}}\\
[[with .Headline]]\textit{[[esc .]]}[[end]]
[[with .Contact]][[escJoin . " \\textbar{} "]]\\[[end]]
\end{center}[[with .Summary]]

\section*{Summary}
[[esc .]][[end]][[with .Skills]]

\section*{Skills}
[[escJoin . "  |  "]][[end]][[with .Experience]]

\section*{Experience}
[[template "entries" .]][[end]][[with .Projects]]

\section*{Projects}
[[template "entries" .]][[end]][[with .Education]]

\section*{Education}
[[template "entries" .]][[end]][[with .Certifications]]

\section*{Certifications}
[[template "bullets" .]][[end]][[with .Additional]]

\section*{Additional}
[[template "bullets" .]][[end]]

\end{document}
[[end]]`

var tmpl = template.Must(template.New("latex").
	Delims("[[", "]]").
	Funcs(template.FuncMap{"esc": Escape, "escJoin": escJoin}).
	Parse(resumeTemplate))

type entryView struct {
	Title    string
	Subtitle string
	Right    string
	Bullets  []string
}

type resumeView struct {
	Preamble       string
	Name           string
	Headline       string
	Contact        []string
	Summary        string
	Skills         []string
	Experience     []entryView
	Projects       []entryView
	Education      []entryView
	Certifications []string
	Additional     []string
}

// Build renders r with the given built-in template.
func Build(templateID string, r *generation.TailoredResume) (string, error) {
	preamble, ok := preambles[templateID]
	if !ok {
		return "", fmt.Errorf("latex: unknown template %q", templateID)
	}
	if r == nil {
		return "", errors.New("latex: nil resume")
	}

	view := resumeView{
		Preamble:       preamble,
		Name:           strings.TrimSpace(r.FullName),
		Headline:       strings.TrimSpace(r.TargetTitle),
		Contact:        cleanList([]string{r.Email, r.Phone, r.Location, r.LinkedIn, r.GitHub, r.Website}, 6),
		Summary:        strings.TrimSpace(r.Summary),
		Skills:         cleanList(r.Skills, maxSkills),
		Experience:     entries(r.Experience, maxExperience),
		Projects:       entries(r.Projects, maxProjects),
		Education:      entries(r.Education, maxEducation),
		Certifications: cleanList(r.Certifications, maxCertifications),
		Additional:     cleanList(r.Additional, maxAdditional),
	}
	if view.Name == "" {
		view.Name = "Candidate Name"
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, "resume", view); err != nil {
		return "", fmt.Errorf("latex: render %s: %w", templateID, err)
	}
	return b.String(), nil
}

func cleanList(values []string, limit int) []string {
	out := make([]string, 0, min(len(values), limit))
	for _, v := range values {
		if len(out) == limit {
			break
		}
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// entries drops untitled items and keeps at most limit.
func entries(items []generation.SectionItem, limit int) []entryView {
	out := make([]entryView, 0, min(len(items), limit))
	for _, it := range items {
		if len(out) == limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		out = append(out, entryView{
			Title:    title,
			Subtitle: strings.TrimSpace(it.Subtitle),
			Right:    strings.Join(cleanList([]string{it.Location, it.Date}, 2), " | "),
			Bullets:  cleanList(it.Bullets, maxBullets),
		})
	}
	return out
}

var (
	nonPrintable = regexp.MustCompile(`[^\x09\x0A\x0D\x20-\x7E]`)

	typography = strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
		"\u00a0", " ",
		"‘", "'", "’", "'",
		"“", `"`, "”", `"`,
		"–", "-", "—", "-",
		"•", "-",
		"…", "...",
	)

	specials = strings.NewReplacer(
		`\`, `\textbackslash{}`,
		`&`, `\&`,
		`%`, `\%`,
		`$`, `\$`,
		`#`, `\#`,
		`_`, `\_`,
		`{`, `\{`,
		`}`, `\}`,
		`~`, `\textasciitilde{}`,
		`^`, `\textasciicircum{}`,
	)
)

// Escape folds typographic characters to ASCII, drops anything else outside
// printable ASCII and escapes LaTeX specials.
func Escape(s string) string {
	s = nonPrintable.ReplaceAllString(typography.Replace(s), "")
	return specials.Replace(s)
}

func escJoin(items []string, sep string) string {
	escaped := make([]string, len(items))
	for i, it := range items {
		escaped[i] = Escape(it)
	}
	return strings.Join(escaped, sep)
}
