// Package regexparser is the deterministic resume parser. It needs no network,
// never fails, and scores itself by how many core sections it recognised.
package regexparser

import (
	"strings"
	"unicode"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// Sections records which core sections were detected.
type Sections struct {
	Name       bool `json:"name"`
	Contact    bool `json:"contact"`
	Education  bool `json:"education"`
	Experience bool `json:"experience"`
	Skills     bool `json:"skills"`
}

// Confidence scores a parse by the share of core sections detected, 0 to 100.
func Confidence(s Sections) int {
	detected := 0
	for _, ok := range []bool{s.Name, s.Contact, s.Education, s.Experience, s.Skills} {
		if ok {
			detected++
		}
	}
	return detected * 100 / 5
}

// Result is a regex parse with its score.
type Result struct {
	Resume     types.ParsedResume `json:"resume"`
	Confidence int                `json:"confidence"`
	Sections   Sections           `json:"sections"`
}

// Parse extracts a resume from plain text. It is pure and idempotent: the same
// text always yields the same result.
func Parse(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Resume: types.NewParsedResume()}
		}
	}()

	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	header, bodies := splitSections(lines)

	resume := types.NewParsedResume()
	parseHeader(&resume, header)

	resume.Summary = joinParagraph(bodies[sectionSummary], resume.Summary)
	resume.Experience = parseExperience(bodies[sectionExperience])
	resume.Education = parseEducation(bodies[sectionEducation])
	resume.Skills = parseSkills(bodies[sectionSkills])
	resume.Certifications = parseCertifications(bodies[sectionCertifications])

	scanContactFallback(&resume.Contact, text)
	resume.Normalize()

	sections := Sections{
		Name:       resume.Name != "",
		Contact:    !resume.Contact.IsEmpty(),
		Education:  len(resume.Education) > 0,
		Experience: len(resume.Experience) > 0,
		Skills:     len(resume.Skills) > 0,
	}
	return Result{Resume: resume, Confidence: Confidence(sections), Sections: sections}
}

func splitSections(lines []string) ([]string, map[sectionKind][]string) {
	var header []string
	bodies := map[sectionKind][]string{}
	current := sectionHeader

	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if kind, ok := matchHeader(line); ok {
			current = kind
			if len(bodies[kind]) > 0 {
				bodies[kind] = append(bodies[kind], "")
			}
			continue
		}
		if kind, body, ok := matchInlineHeader(line); ok {
			current = kind
			if len(bodies[kind]) > 0 {
				bodies[kind] = append(bodies[kind], "")
			}
			bodies[kind] = append(bodies[kind], body)
			continue
		}
		if current == sectionHeader {
			header = append(header, line)
			continue
		}
		bodies[current] = append(bodies[current], line)
	}
	return header, bodies
}

func parseHeader(r *types.ParsedResume, lines []string) {
	var summary []string
	seen := 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		seen++

		if seen == 1 {
			if name := stripMarkdown(line); looksLikeName(name) {
				r.Name = name
				continue
			}
		}

		if scanContactLine(&r.Contact, line, r.Title != "") {
			continue
		}
		if r.Title == "" && seen <= 3 && looksLikeTitle(line) {
			r.Title = stripMarkdown(line)
			continue
		}
		if len(strings.Fields(line)) >= 12 {
			summary = append(summary, line)
		}
	}
	r.Summary = strings.Join(summary, " ")
}

// scanContactLine classifies each segment of a header line. Bare "City,
// Region" segments only count as a location when the line carries other
// contact data or the headline is already known.
func scanContactLine(c *types.Contact, line string, titleKnown bool) bool {
	matched := false
	var locationCandidates []string

	for _, seg := range segmentSepRe.Split(line, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		labelled := labelRe.FindString(seg)
		seg = strings.TrimSpace(strings.TrimPrefix(seg, labelled))
		label := strings.ToLower(labelled)

		if m := emailRe.FindString(seg); m != "" {
			setIfEmpty(&c.Email, m)
			matched = true
			continue
		}
		if m := githubRe.FindString(seg); m != "" {
			setIfEmpty(&c.Github, strings.TrimRight(m, "/"))
			matched = true
			continue
		}
		if m := linkedinRe.FindString(seg); m != "" {
			setIfEmpty(&c.Linkedin, strings.TrimRight(m, "/"))
			matched = true
			continue
		}
		if m := urlRe.FindString(seg); m != "" && m == seg {
			setIfEmpty(&c.Website, strings.TrimRight(m, "/.,"))
			matched = true
			continue
		}
		if p := findPhone(seg); p != "" {
			setIfEmpty(&c.Phone, p)
			matched = true
			continue
		}
		if strings.HasPrefix(label, "location") || strings.HasPrefix(label, "address") || strings.HasPrefix(label, "based in") {
			setIfEmpty(&c.Location, seg)
			matched = true
			continue
		}
		if locationRe.MatchString(seg) && len(seg) <= 50 {
			locationCandidates = append(locationCandidates, seg)
		}
	}

	if len(locationCandidates) > 0 && (matched || titleKnown) {
		setIfEmpty(&c.Location, locationCandidates[0])
		matched = true
	}
	return matched
}

// scanContactFallback picks up contact details printed outside the header
// block, such as in a footer.
func scanContactFallback(c *types.Contact, text string) {
	if c.Email == "" {
		c.Email = emailRe.FindString(text)
	}
	if c.Github == "" {
		c.Github = strings.TrimRight(githubRe.FindString(text), "/")
	}
	if c.Linkedin == "" {
		c.Linkedin = strings.TrimRight(linkedinRe.FindString(text), "/")
	}
	if c.Phone == "" {
		for _, line := range strings.Split(text, "\n") {
			if p := findPhone(line); p != "" {
				c.Phone = p
				break
			}
		}
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

var nonNameWords = map[string]bool{
	"resume": true, "résumé": true, "cv": true, "curriculum": true, "vitae": true,
}

func looksLikeName(s string) bool {
	if s == "" || len(s) > 50 {
		return false
	}
	if _, isHeader := matchHeader(s); isHeader {
		return false
	}
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		if nonNameWords[strings.ToLower(w)] {
			return false
		}
		for i, r := range w {
			if i == 0 && !unicode.IsUpper(r) {
				return false
			}
			if !unicode.IsLetter(r) && r != '.' && r != '-' && r != '\'' && r != '’' {
				return false
			}
		}
	}
	return true
}

func looksLikeTitle(s string) bool {
	s = stripMarkdown(s)
	if len(s) < 2 || len(s) > 80 {
		return false
	}
	if _, isHeader := matchHeader(s); isHeader {
		return false
	}
	if strings.ContainsAny(s, "@") || urlRe.MatchString(s) || findPhone(s) != "" {
		return false
	}
	if len(strings.Fields(s)) > 10 || strings.HasSuffix(s, ".") {
		return false
	}
	first := []rune(s)[0]
	return unicode.IsLetter(first)
}

func joinParagraph(lines []string, fallback string) string {
	var parts []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if detail, ok := bulletText(line); ok {
			line = detail
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, " ")
}
