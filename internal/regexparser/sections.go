package regexparser

import (
	"strings"
	"unicode"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// parseExperience groups section lines into jobs. A job starts at a non-bullet
// line after a blank line, after bullets, or when a new date range appears;
// bullet lines are its details.
func parseExperience(lines []string) []types.Experience {
	var jobs []types.Experience
	var cur *types.Experience
	afterBlank := false

	flush := func() {
		if cur != nil && (cur.Title != "" || cur.Company != "" || cur.Duration != "" || len(cur.Details) > 0) {
			jobs = append(jobs, *cur)
		}
		cur = nil
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			afterBlank = true
			continue
		}

		if detail, ok := bulletText(line); ok {
			if cur == nil {
				cur = &types.Experience{Details: []string{}}
			}
			cur.Details = append(cur.Details, detail)
			afterBlank = false
			continue
		}

		switch {
		case cur == nil || afterBlank:
		case len(cur.Details) == 0:
			if extendJobHeader(cur, line) {
				afterBlank = false
				continue
			}
			cur.Details = append(cur.Details, line)
			continue
		case isProse(line) && !dateRangeRe.MatchString(line):
			cur.Details = append(cur.Details, line)
			continue
		}

		flush()
		title, company, duration := splitJobHeader(line)
		cur = &types.Experience{Title: title, Company: company, Duration: duration, Details: []string{}}
		afterBlank = false
	}
	flush()
	return jobs
}

// extendJobHeader folds a second header line ("Acme Corp | 2019 - 2022" or a
// bare date) into the current job. It reports false when the line reads like
// a detail instead.
func extendJobHeader(cur *types.Experience, line string) bool {
	if isOnlyDuration(line) {
		if cur.Duration != "" {
			return false
		}
		cur.Duration = strings.Trim(line, "()[] ")
		return true
	}
	if isProse(line) {
		return false
	}

	rest, duration := cutDuration(line)
	if duration != "" && cur.Duration != "" {
		return false
	}
	if cur.Company != "" && rest != "" {
		return false
	}

	if rest != "" {
		parts := splitFields(rest)
		if cur.Title == "" {
			cur.Title, cur.Company, _ = splitJobHeader(rest)
		} else if len(parts) > 0 {
			cur.Company = parts[0]
		}
	}
	if duration != "" {
		cur.Duration = duration
	}
	return true
}

// splitJobHeader reads "Title, Company, Dates", "Title at Company (Dates)" and
// "Title | Company | Dates".
func splitJobHeader(line string) (title, company, duration string) {
	rest, duration := cutDuration(line)

	if m := atRe.FindStringSubmatch(rest); m != nil && !strings.Contains(m[1], ",") {
		return trimFieldPunct(m[1]), firstField(m[2]), duration
	}

	parts := splitFields(rest)
	switch len(parts) {
	case 0:
		return "", "", duration
	case 1:
		return parts[0], "", duration
	default:
		return parts[0], parts[1], duration
	}
}

func firstField(s string) string {
	if parts := splitFields(s); len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// isProse reports whether a line reads like a sentence rather than a heading.
func isProse(line string) bool {
	if strings.HasSuffix(line, ".") || len(line) > 90 {
		return true
	}
	first := []rune(line)[0]
	return unicode.IsLower(first)
}

func parseEducation(lines []string) []types.Education {
	var out []types.Education
	var cur *types.Education

	flush := func() {
		if cur != nil && (cur.Degree != "" || cur.Institution != "") {
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		if detail, ok := bulletText(line); ok {
			if cur != nil {
				cur.Note = appendNote(cur.Note, detail)
			}
			continue
		}

		degree, institution, duration, extra := splitEducation(line)
		if cur == nil || (degree != "" && cur.Degree != "") || (institution != "" && cur.Institution != "") {
			flush()
			cur = &types.Education{}
		}

		if degree != "" {
			cur.Degree = degree
		}
		if institution != "" {
			cur.Institution = institution
		}
		if duration != "" && cur.Duration == "" {
			cur.Duration = duration
		}
		for _, e := range extra {
			switch {
			case cur.Degree == "":
				cur.Degree = e
			case cur.Institution == "":
				cur.Institution = e
			default:
				cur.Note = appendNote(cur.Note, e)
			}
		}
	}
	flush()
	return out
}

// splitEducation classifies the fields of one education line. Fields that
// match neither a degree nor an institution are returned in order as extra.
func splitEducation(line string) (degree, institution, duration string, extra []string) {
	rest, duration := cutDuration(line)
	if m := atRe.FindStringSubmatch(rest); m != nil {
		rest = m[1] + ", " + m[2]
	}

	for _, part := range splitFields(rest) {
		switch {
		case institution == "" && institutionRe.MatchString(part):
			institution = part
		case degree == "" && degreeRe.MatchString(part):
			degree = part
		default:
			extra = append(extra, part)
		}
	}
	return degree, institution, duration, extra
}

func appendNote(note, s string) string {
	if note == "" {
		return s
	}
	return note + "; " + s
}

func parseSkills(lines []string) []string {
	skills := []string{}
	seen := map[string]bool{}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if detail, ok := bulletText(line); ok {
			line = detail
		}
		if i := strings.Index(line, ":"); i > 0 && i <= 30 {
			line = line[i+1:]
		}
		for _, s := range skillSepRe.Split(line, -1) {
			s = strings.TrimSpace(strings.TrimRight(s, "."))
			if s == "" || len(s) > 50 {
				continue
			}
			key := strings.ToLower(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			skills = append(skills, s)
		}
	}
	return skills
}

func parseCertifications(lines []string) []types.Certification {
	certs := []types.Certification{}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if detail, ok := bulletText(line); ok {
			line = detail
		}

		var cert types.Certification
		if m := certIDRe.FindStringSubmatchIndex(line); m != nil {
			cert.ID = line[m[2]:m[3]]
			line = line[:m[0]] + " " + line[m[1]:]
		}
		line, cert.Date = cutDuration(line)

		if m := byRe.FindStringSubmatch(line); m != nil {
			cert.Name = trimFieldPunct(m[1])
			cert.Issuer = firstField(m[2])
		} else {
			parts := splitFields(line)
			if len(parts) > 0 {
				cert.Name = parts[0]
			}
			if len(parts) > 1 {
				cert.Issuer = parts[1]
			}
		}
		if cert.Name == "" {
			continue
		}
		certs = append(certs, cert)
	}
	return certs
}
