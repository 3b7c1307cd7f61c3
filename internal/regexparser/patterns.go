package regexparser

import (
	"regexp"
	"strings"
)

const (
	monthPattern = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`
	pointPattern = `(?:` + monthPattern + `\s+)?(?:\d{1,2}/)?(?:19|20)\d{2}`
	endPattern   = `(?:` + pointPattern + `|present|current|now|today|ongoing)`
)

var (
	dateRangeRe  = regexp.MustCompile(`(?i)` + pointPattern + `\s*(?:-|–|—|to|until)\s*` + endPattern)
	singleDateRe = regexp.MustCompile(`(?i)\b` + pointPattern + `\b`)

	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{7,}\d`)
	githubRe   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[A-Za-z0-9_.\-]+/?`)
	linkedinRe = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/(?:in|pub)/[A-Za-z0-9_%\-]+/?`)
	urlRe      = regexp.MustCompile(`(?i)(?:https?://[^\s|,;]+|www\.[^\s|,;]+|\b[a-z0-9][a-z0-9\-]*(?:\.[a-z0-9\-]+)*\.(?:com|org|net|io|dev|me|co|app|ai|xyz|info|tech|site|page|blog|uk|za|de|ca|au)\b(?:/[^\s|,;]*)?)`)
	locationRe = regexp.MustCompile(`^[\p{Lu}][\p{L}.'\- ]+,\s*[\p{Lu}][\p{L}.'\- ]+$`)

	segmentSepRe    = regexp.MustCompile(`\s*[|•·]\s*|\s{3,}|\t+`)
	labelRe         = regexp.MustCompile(`(?i)^(?:e-?mail|phone|tel|mobile|cell|location|address|based in|web(?:site)?|portfolio|github|linkedin)\s*[:\-]\s*`)
	bulletRe        = regexp.MustCompile(`^[-*•·–—▪◦‣●►]\s*(\S.*)$`)
	fieldSepRe      = regexp.MustCompile(`\s*(?:,|\||\s[–—-]\s)\s*`)
	atRe            = regexp.MustCompile(`(?i)^(.+?)\s+(?:at|@)\s+(.+)$`)
	byRe            = regexp.MustCompile(`(?i)^(.+?)\s+(?:issued by|by|from)\s+(.+)$`)
	certIDRe        = regexp.MustCompile(`(?i)(?:(?:credential\s*id|cert(?:ificate)?\s*(?:id|no\.?|#))\s*[:#]?|\bid\s*[:#])\s*([A-Za-z0-9][A-Za-z0-9\-]{3,})`)
	skillSepRe      = regexp.MustCompile(`\s*[,;|•·]\s*`)
	emptyBracketsRe = regexp.MustCompile(`\(\s*\)|\[\s*\]`)

	degreeRe      = regexp.MustCompile(`(?i)\b(?:bachelor|master|doctor|ph\.?\s?d|b\.?\s?sc|m\.?\s?sc|b\.?\s?eng|m\.?\s?eng|b\.?\s?com|b\.?\s?tech|m\.?\s?tech|b\.?\s?a|m\.?\s?a|b\.?\s?s|m\.?\s?s|mba|llb|llm|diploma|degree|associate|honou?rs|certificate|matric)\b`)
	institutionRe = regexp.MustCompile(`(?i)\b(?:university|universiteit|college|institute|school|academy|polytechnic|conservatory)\b`)
)

type sectionKind int

const (
	sectionHeader sectionKind = iota
	sectionSummary
	sectionExperience
	sectionEducation
	sectionSkills
	sectionCertifications
	sectionOther
)

var sectionAliases = map[string]sectionKind{
	"summary":                     sectionSummary,
	"professional summary":        sectionSummary,
	"profile":                     sectionSummary,
	"professional profile":        sectionSummary,
	"about":                       sectionSummary,
	"about me":                    sectionSummary,
	"objective":                   sectionSummary,
	"career objective":            sectionSummary,
	"experience":                  sectionExperience,
	"work experience":             sectionExperience,
	"professional experience":     sectionExperience,
	"relevant experience":         sectionExperience,
	"employment":                  sectionExperience,
	"employment history":          sectionExperience,
	"work history":                sectionExperience,
	"career history":              sectionExperience,
	"education":                   sectionEducation,
	"education and training":      sectionEducation,
	"academic background":         sectionEducation,
	"skills":                      sectionSkills,
	"technical skills":            sectionSkills,
	"core skills":                 sectionSkills,
	"key skills":                  sectionSkills,
	"skills and tools":            sectionSkills,
	"skills & tools":              sectionSkills,
	"core competencies":           sectionSkills,
	"competencies":                sectionSkills,
	"technologies":                sectionSkills,
	"certifications":              sectionCertifications,
	"certification":               sectionCertifications,
	"certificates":                sectionCertifications,
	"licenses & certifications":   sectionCertifications,
	"licenses and certifications": sectionCertifications,
	"licences & certifications":   sectionCertifications,
	"projects":                    sectionOther,
	"personal projects":           sectionOther,
	"interests":                   sectionOther,
	"hobbies":                     sectionOther,
	"references":                  sectionOther,
	"awards":                      sectionOther,
	"honors":                      sectionOther,
	"honours":                     sectionOther,
	"publications":                sectionOther,
	"volunteering":                sectionOther,
	"volunteer experience":        sectionOther,
	"languages":                   sectionOther,
}

// matchHeader reports whether line is, in its entirety, a section header.
func matchHeader(line string) (sectionKind, bool) {
	key := strings.TrimSpace(line)
	if key == "" || len(key) > 40 {
		return sectionHeader, false
	}
	key = stripMarkdown(key)
	key = strings.TrimRight(key, ": ")
	key = strings.ToLower(strings.Join(strings.Fields(key), " "))
	kind, ok := sectionAliases[key]
	return kind, ok
}

// matchInlineHeader splits "Skills: Go, Rust" into its section and the body
// text after the colon.
func matchInlineHeader(line string) (sectionKind, string, bool) {
	prefix, body, found := strings.Cut(line, ":")
	if !found {
		return sectionHeader, "", false
	}
	body = strings.TrimSpace(strings.TrimLeft(body, "*_ "))
	if body == "" {
		return sectionHeader, "", false
	}
	kind, ok := matchHeader(prefix)
	if !ok {
		return sectionHeader, "", false
	}
	return kind, body, true
}

func stripMarkdown(s string) string {
	s = strings.TrimLeft(s, "# ")
	s = strings.Trim(s, "*_ ")
	return strings.TrimSpace(s)
}

func bulletText(line string) (string, bool) {
	m := bulletRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// findDuration returns the first date range in s, or a single date when no
// range is present, with its byte offsets.
func findDuration(s string) (string, int, int) {
	if loc := dateRangeRe.FindStringIndex(s); loc != nil {
		return s[loc[0]:loc[1]], loc[0], loc[1]
	}
	if loc := singleDateRe.FindStringIndex(s); loc != nil {
		return s[loc[0]:loc[1]], loc[0], loc[1]
	}
	return "", -1, -1
}

// cutDuration removes the first date from s and returns both parts.
func cutDuration(s string) (rest, duration string) {
	d, start, end := findDuration(s)
	if start < 0 {
		return trimFieldPunct(s), ""
	}
	return trimFieldPunct(s[:start] + " " + s[end:]), d
}

func isOnlyDuration(s string) bool {
	rest, d := cutDuration(s)
	return d != "" && rest == ""
}

func trimFieldPunct(s string) string {
	s = emptyBracketsRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,|;:-–—")
}

func splitFields(s string) []string {
	parts := fieldSepRe.Split(s, -1)
	out := parts[:0]
	for _, p := range parts {
		if p = trimFieldPunct(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func findPhone(s string) string {
	for _, candidate := range phoneRe.FindAllString(s, -1) {
		candidate = strings.TrimSpace(candidate)
		if d := countDigits(candidate); d >= 10 && d <= 15 && !dateRangeRe.MatchString(candidate) {
			return candidate
		}
	}
	return ""
}
