package formatters

import (
	"fmt"
	"strings"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/pipeline"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// style renders headings and list items for one output format.
type style struct {
	name    string
	title   func(string) string
	section func(string) string
	item    string
	strong  func(string) string
}

var textStyle = style{
	name:    "text",
	title:   func(s string) string { return "=== " + strings.ToUpper(s) + " ===\n\n" },
	section: func(s string) string { return strings.ToUpper(s) + "\n" },
	item:    "  - ",
	strong:  func(s string) string { return s },
}

var markdownStyle = style{
	name:    "markdown",
	title:   func(s string) string { return "# " + s + "\n\n" },
	section: func(s string) string { return "## " + s + "\n\n" },
	item:    "- ",
	strong:  func(s string) string { return "**" + s + "**" },
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// writeResume renders the resume body shared by every result type.
func writeResume(b *strings.Builder, st style, r types.ParsedResume) {
	if r.Name != "" {
		b.WriteString(st.strong(r.Name) + "\n")
	}
	if r.Title != "" {
		b.WriteString(r.Title + "\n")
	}
	c := r.Contact
	if line := joinNonEmpty(" | ", c.Email, c.Phone, c.Location, c.Website, c.Github, c.Linkedin); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if r.Summary != "" {
		b.WriteString(st.section("Summary"))
		b.WriteString(r.Summary + "\n\n")
	}

	if len(r.Experience) > 0 {
		b.WriteString(st.section("Experience"))
		for _, e := range r.Experience {
			b.WriteString(st.strong(joinNonEmpty(", ", e.Title, e.Company, e.Duration)) + "\n")
			for _, d := range e.Details {
				b.WriteString(st.item + d + "\n")
			}
			b.WriteString("\n")
		}
	}

	if len(r.Education) > 0 {
		b.WriteString(st.section("Education"))
		for _, e := range r.Education {
			b.WriteString(st.item + joinNonEmpty(", ", e.Degree, e.Institution, e.Duration, e.Note) + "\n")
		}
		b.WriteString("\n")
	}

	if len(r.Skills) > 0 {
		b.WriteString(st.section("Skills"))
		b.WriteString(strings.Join(r.Skills, ", ") + "\n\n")
	}

	if len(r.Certifications) > 0 {
		b.WriteString(st.section("Certifications"))
		for _, c := range r.Certifications {
			line := joinNonEmpty(", ", c.Name, c.Issuer, c.Date)
			if c.ID != "" {
				line += " (ID " + c.ID + ")"
			}
			b.WriteString(st.item + line + "\n")
		}
		b.WriteString("\n")
	}
}

func writeJobSpec(b *strings.Builder, st style, res types.JobSpecResult) {
	s := res.Spec
	b.WriteString(st.strong(joinNonEmpty(" at ", s.Title, s.Company)) + "\n")
	if meta := joinNonEmpty(" | ", s.Location, s.EmploymentType, s.Seniority); meta != "" {
		b.WriteString(meta + "\n")
	}
	fmt.Fprintf(b, "Confidence: %d/100\n\n", res.Confidence)
	if s.Summary != "" {
		b.WriteString(s.Summary + "\n\n")
	}
	for _, list := range []struct {
		name  string
		items []string
	}{
		{"Required skills", s.RequiredSkills},
		{"Preferred skills", s.PreferredSkills},
		{"Responsibilities", s.Responsibilities},
		{"Qualifications", s.Qualifications},
		{"Keywords", s.Keywords},
	} {
		if len(list.items) == 0 {
			continue
		}
		b.WriteString(st.section(list.name))
		for _, it := range list.items {
			b.WriteString(st.item + it + "\n")
		}
		b.WriteString("\n")
	}
}

func writeInsights(b *strings.Builder, st style, commentary string) {
	if commentary == "" {
		return
	}
	b.WriteString(st.section("AI Insights"))
	b.WriteString(commentary + "\n\n")
}

// ParseFormatter renders a ParseResult.
type ParseFormatter struct{ style style }

func (f *ParseFormatter) Format(data any) (string, error) {
	res, ok := data.(types.ParseResult)
	if !ok {
		return "", fmt.Errorf("expected ParseResult, got %T", data)
	}
	var b strings.Builder
	b.WriteString(f.style.title("Parsed Resume"))
	fmt.Fprintf(&b, "Method: %s | Confidence: %d/100\n\n", res.Method, res.Confidence)
	writeResume(&b, f.style, res.Resume)
	return b.String(), nil
}

func (f *ParseFormatter) SupportedType() string { return TypeParseResult }

// JobSpecFormatter renders a JobSpecResult.
type JobSpecFormatter struct{ style style }

func (f *JobSpecFormatter) Format(data any) (string, error) {
	res, ok := data.(types.JobSpecResult)
	if !ok {
		return "", fmt.Errorf("expected JobSpecResult, got %T", data)
	}
	var b strings.Builder
	b.WriteString(f.style.title("Job Specification"))
	writeJobSpec(&b, f.style, res)
	return b.String(), nil
}

func (f *JobSpecFormatter) SupportedType() string { return TypeJobSpecResult }

// TailorFormatter renders a TailorResult.
type TailorFormatter struct{ style style }

func (f *TailorFormatter) Format(data any) (string, error) {
	res, ok := data.(types.TailorResult)
	if !ok {
		return "", fmt.Errorf("expected TailorResult, got %T", data)
	}
	var b strings.Builder
	b.WriteString(f.style.title("Tailored Resume"))
	writeResume(&b, f.style, res.Resume)
	writeInsights(&b, f.style, res.Commentary)
	return b.String(), nil
}

func (f *TailorFormatter) SupportedType() string { return TypeTailorResult }

// PipelineFormatter renders a PipelineResult, naming a failed stage.
type PipelineFormatter struct{ style style }

func (f *PipelineFormatter) Format(data any) (string, error) {
	res, ok := data.(pipeline.PipelineResult)
	if !ok {
		return "", fmt.Errorf("expected PipelineResult, got %T", data)
	}
	var b strings.Builder
	heading := "Parsed Resume"
	if res.Tailored {
		heading = "Tailored Resume"
	}
	b.WriteString(f.style.title(heading))
	fmt.Fprintf(&b, "Method: %s | Confidence: %d/100\n", res.Method, res.Confidence)
	if res.FailedStage != "" {
		fmt.Fprintf(&b, "Tailoring skipped: %s stage failed (%s)\n", res.FailedStage, res.StageErrorCode())
	}
	b.WriteString("\n")
	writeResume(&b, f.style, res.Resume)
	writeInsights(&b, f.style, res.Commentary)
	if res.JobSpec != nil {
		b.WriteString(f.style.section("Target Role"))
		writeJobSpec(&b, f.style, *res.JobSpec)
	}
	return b.String(), nil
}

func (f *PipelineFormatter) SupportedType() string { return TypePipelineResult }

// RecordFormatter renders a saved resume.
type RecordFormatter struct{ style style }

func (f *RecordFormatter) Format(data any) (string, error) {
	rec, ok := data.(store.Record)
	if !ok {
		return "", fmt.Errorf("expected Record, got %T", data)
	}
	var b strings.Builder
	b.WriteString(f.style.title(rec.Title))
	visibility := "private"
	if rec.IsPublic {
		visibility = "public"
	}
	fmt.Fprintf(&b, "Slug: %s | ID: %s | %s | views: %d\n", rec.Slug, rec.ID, visibility, rec.ViewCount)
	fmt.Fprintf(&b, "Method: %s | Confidence: %d/100 | Saved: %s\n\n",
		rec.ParseMethod, rec.ConfidenceScore, rec.CreatedAt.Format("2006-01-02 15:04"))
	writeResume(&b, f.style, rec.ParsedData)
	return b.String(), nil
}

func (f *RecordFormatter) SupportedType() string { return TypeRecord }
