// Package tailor rewrites a parsed resume towards a job specification and
// enforces fact preservation on the model's answer.
package tailor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ai"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/jobspec"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// Request is one tailoring call.
type Request struct {
	Original       types.ParsedResume
	Spec           types.JobSpecification
	SpecConfidence int
	Tone           types.Tone
	ExtraPrompt    string
}

// Engine tailors resumes with an AI model.
type Engine struct {
	provider ai.ResumeTailorer
	logger   *errors.Logger
}

// NewEngine creates an engine backed by provider.
func NewEngine(provider ai.ResumeTailorer, logger *errors.Logger) *Engine {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Engine{provider: provider, logger: logger}
}

// ResolveTone maps an empty tone to Neutral and rejects unknown tones.
func ResolveTone(t types.Tone) (types.Tone, error) {
	switch t {
	case "":
		return types.ToneNeutral, nil
	case types.ToneFormal, types.ToneNeutral, types.ToneCreative:
		return t, nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidContext,
			fmt.Sprintf("Unknown tone %q", t), nil)
	}
}

// Tailor runs the model and applies PreserveFacts to its answer. A low spec
// confidence only softens the commentary; it never blocks tailoring. Any AI
// failure fails the whole call.
func (e *Engine) Tailor(ctx context.Context, req Request) (types.TailorResult, error) {
	tone, err := ResolveTone(req.Tone)
	if err != nil {
		return types.TailorResult{}, err
	}

	original := req.Original.Clone()
	original.Normalize()
	spec := req.Spec
	spec.Normalize()

	out, usage, err := e.provider.TailorResume(ctx, types.TailorResumeInput{
		Resume:         original,
		JobSpec:        spec,
		Tone:           tone,
		ExtraPrompt:    req.ExtraPrompt,
		LowConfidence:  req.SpecConfidence < jobspec.LowConfidence,
		SpecConfidence: req.SpecConfidence,
	})
	if err != nil {
		return types.TailorResult{}, err
	}

	result := types.TailorResult{
		Resume:     PreserveFacts(original, out.Resume),
		Commentary: strings.TrimSpace(out.Commentary),
	}

	args := []any{"tone", tone, "spec_confidence", req.SpecConfidence, "skills", len(result.Resume.Skills)}
	if usage != nil {
		args = append(args, "total_tokens", usage.TotalTokens)
	}
	e.logger.Debug("Resume tailored", args...)

	return result, nil
}

// PreserveFacts builds the final resume from the original, taking only prose
// from tailored: the summary, experience detail lines and skill order.
// Identity, contact, education, certifications, presentation data and every
// experience entry's title, company and duration are the original's, as are
// the number and order of entries.
func PreserveFacts(original, tailored types.ParsedResume) types.ParsedResume {
	result := original.Clone()
	result.Normalize()

	if s := strings.TrimSpace(tailored.Summary); s != "" {
		result.Summary = s
	}

	matched := matchExperience(result.Experience, tailored.Experience)
	for i := range result.Experience {
		if matched[i] == nil {
			continue
		}
		if details := nonEmpty(matched[i].Details); len(details) > 0 {
			result.Experience[i].Details = details
		}
	}

	result.Skills = FilterSkills(original.Skills, tailored.Skills)
	return result
}

// matchExperience pairs each original entry with a tailored one, by company
// and title first, then by position for entries left over.
func matchExperience(original, tailored []types.Experience) []*types.Experience {
	out := make([]*types.Experience, len(original))
	used := make([]bool, len(tailored))

	for i, o := range original {
		for j := range tailored {
			if used[j] {
				continue
			}
			if sameText(o.Company, tailored[j].Company) && sameText(o.Title, tailored[j].Title) {
				out[i] = &tailored[j]
				used[j] = true
				break
			}
		}
	}
	for i := range original {
		if out[i] == nil && i < len(tailored) && !used[i] {
			out[i] = &tailored[i]
			used[i] = true
		}
	}
	return out
}

// FilterSkills orders the original skills as the model ranked them. Skills
// the model invented are dropped; original skills it left out keep their
// relative order at the end. Original spelling always wins.
func FilterSkills(original, ranked []string) []string {
	byKey := make(map[string]string, len(original))
	for _, s := range original {
		if k := skillKey(s); k != "" {
			if _, ok := byKey[k]; !ok {
				byKey[k] = s
			}
		}
	}

	out := make([]string, 0, len(byKey))
	seen := make(map[string]bool, len(byKey))
	add := func(s string) {
		k := skillKey(s)
		if orig, ok := byKey[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, orig)
		}
	}
	for _, s := range ranked {
		add(s)
	}
	for _, s := range original {
		add(s)
	}
	return out
}

func skillKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sameText(a, b string) bool {
	return skillKey(a) == skillKey(b)
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
