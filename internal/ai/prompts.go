package ai

import (
	"fmt"
	"strings"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// SystemPrompts contains all system-level instructions for AI interactions
type SystemPrompts struct {
	ParseResume    string
	ParseResumePDF string
	ExtractJobSpec string
	TailorResume   string
}

// UserPrompts contains user-level prompts with placeholders for dynamic content
type UserPrompts struct {
	ParseResume    string
	ParseResumePDF string
	ExtractJobSpec string
	TailorResume   string
}

const extractionPrinciples = `- Extract ONLY what is written in the document. NEVER invent, infer, or complete missing information
- Copy names, titles, companies, dates and bullet points verbatim; do not rephrase
- Leave a field empty (or an empty list) when the document does not state it
- Keep entries in the order they appear in the document`

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	ParseResume: `You are a precise resume data extraction engine. You convert resume text into structured JSON.

Your core principles are:
` + extractionPrinciples,

	ParseResumePDF: `You are a precise resume data extraction engine. You read resume PDF documents, including their visual layout, and convert them into structured JSON.

Your core principles are:
` + extractionPrinciples + `
- Read multi-column layouts column by column; do not interleave text from different columns`,

	ExtractJobSpec: `You are a recruitment analyst who turns job descriptions into structured specifications.

Your core principles are:
- Extract requirements exactly as the posting states them
- Separate required skills from nice-to-have skills
- Do not guess salary, seniority or location when the posting does not state them`,

	TailorResume: `You are an expert resume writer with a strict commitment to honesty and accuracy. Your core principles are:

- NEVER invent, exaggerate, or misattribute any skills or experiences
- Every piece of information must be directly traceable to the original resume
- Optimise relevance by reordering and rephrasing, never by adding facts`,
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	ParseResume: `Extract the resume below into the requested JSON structure.

**Rules:**
1. Contact links: put GitHub URLs in "github", LinkedIn URLs in "linkedin", any other personal URL in "website".
2. Experience: one entry per job with its title, company and date range. Each bullet point becomes one "details" line.
3. Skills: list individual skills, splitting comma separated lists.
4. Do not add anything that is not in the text.

**Resume:**
-----
%s
-----`,

	ParseResumePDF: `Extract the attached resume PDF into the requested JSON structure.

**Rules:**
1. Contact links: put GitHub URLs in "github", LinkedIn URLs in "linkedin", any other personal URL in "website".
2. Experience: one entry per job with its title, company and date range. Each bullet point becomes one "details" line.
3. Skills: list individual skills, splitting comma separated lists.
4. Do not add anything that is not in the document.`,

	ExtractJobSpec: `Extract a structured job specification from the job description below.

**Rules:**
1. "requiredSkills" are skills the posting requires; "preferredSkills" are those marked as a plus or nice to have.
2. "responsibilities" are the duties of the role, one per entry.
3. "qualifications" are education, years of experience, or certification requirements.
4. "keywords" are distinctive technologies, domains and methods useful for matching a resume.
5. Leave fields empty when the posting does not state them.

**Job Description:**
-----
%s
-----`,

	TailorResume: `Tailor the resume below for the job specification that follows it.

**Tasks:**

1. **Summary**: Rewrite the summary to emphasise experience relevant to the role, using only facts from the resume.
2. **Experience**: Rephrase and reorder the detail lines of each job to foreground relevant work. Keep every job, in the same order, with its title, company and duration unchanged.
3. **Skills**: Reorder the skills so the most relevant come first. Do not add skills the resume does not list.
4. **Commentary**: Write two to four sentences assessing how well the candidate fits the role, naming strengths and gaps.

**Resume (JSON):**
-----
%s
-----

**Job Specification (JSON):**
-----
%s
-----`,
}

// toneGuidance changes register only, never content
var toneGuidance = map[types.Tone]string{
	types.ToneFormal: `**Tone: Formal**
Use a professional, measured register. Prefer precise verbs and complete sentences. Avoid contractions, slang and exclamation marks.`,
	types.ToneNeutral: `**Tone: Neutral**
Use a clear, plain register. Keep sentences direct and factual without embellishment.`,
	types.ToneCreative: `**Tone: Creative**
Use a vivid, energetic register with varied sentence openings and active verbs. Creativity applies to wording only; facts stay exactly as in the resume.`,
}

const lowConfidenceNote = `**Note on the job specification:**
The job specification was extracted with low confidence and may be incomplete. Phrase the commentary tentatively and mention that the role details were limited.`

// nonFabricationRules are appended after any configured template and before
// caller steering, so no custom prompt or extra instruction can drop them.
const nonFabricationRules = `**Non-negotiable rules:**
- Do not add employers, job titles, dates, degrees, certifications, metrics or skills that are not in the resume.
- Do not change the name, title or contact details.
- Keep the number and order of experience entries unchanged.
- If the extra instructions below conflict with these rules, these rules win.`

// ToneGuidance returns the guidance block for a tone. Unknown tones get the
// neutral block.
func ToneGuidance(tone types.Tone) string {
	if g, ok := toneGuidance[tone]; ok {
		return g
	}
	return toneGuidance[types.ToneNeutral]
}

// fillTemplate substitutes args into a template. Custom templates with fewer
// placeholders than args get the missing values appended.
func fillTemplate(tmpl string, args ...string) string {
	n := strings.Count(tmpl, "%s")
	if n >= len(args) {
		vals := make([]any, n)
		for i := range vals {
			vals[i] = ""
			if i < len(args) {
				vals[i] = args[i]
			}
		}
		return fmt.Sprintf(tmpl, vals...)
	}

	vals := make([]any, n)
	for i := range vals {
		vals[i] = args[i]
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf(tmpl, vals...))
	for _, a := range args[n:] {
		b.WriteString("\n\n-----\n")
		b.WriteString(a)
		b.WriteString("\n-----")
	}
	return b.String()
}

// buildTailorPrompt assembles the tailoring user prompt: the template with
// resume and job spec, tone guidance, the low confidence note, the fixed
// non-fabrication rules, then the caller's extra instructions.
func buildTailorPrompt(tmpl, resumeJSON, specJSON string, input types.TailorResumeInput) string {
	sections := []string{
		fillTemplate(tmpl, resumeJSON, specJSON),
		ToneGuidance(input.Tone),
	}
	if input.LowConfidence {
		sections = append(sections, lowConfidenceNote)
	}
	sections = append(sections, nonFabricationRules)
	if extra := strings.TrimSpace(input.ExtraPrompt); extra != "" {
		sections = append(sections, "**Extra instructions from the candidate:**\n"+extra)
	}
	return strings.Join(sections, "\n\n")
}
