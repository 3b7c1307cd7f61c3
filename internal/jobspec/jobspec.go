// Package jobspec turns job descriptions into structured specifications and
// scores how much signal the description carried.
package jobspec

import (
	"context"
	"math"
	"strings"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ai"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// LowConfidence is the score below which tailoring commentary is tentative.
const LowConfidence = 50

// Confidence weights. They sum to 100.
const (
	weightTitle            = 20
	weightRequiredSkills   = 25
	weightResponsibilities = 20
	weightQualifications   = 10
	weightCompany          = 5
	weightDetails          = 5
	weightRichness         = 15

	fullRequiredSkills   = 5
	fullResponsibilities = 4
	fullQualifications   = 3
	fullRichnessWords    = 200
)

// Confidence scores an extraction by the structured signal found, 0 to 100.
// A bare "see attached" posting scores near zero; a posting with a title,
// skill list, duties and qualifications scores high.
func Confidence(text string, spec types.JobSpecification) int {
	score := 0.0

	if strings.TrimSpace(spec.Title) != "" {
		score += weightTitle
	}
	score += scaled(weightRequiredSkills, countNonEmpty(spec.RequiredSkills), fullRequiredSkills)
	score += scaled(weightResponsibilities, countNonEmpty(spec.Responsibilities), fullResponsibilities)
	score += scaled(weightQualifications, countNonEmpty(spec.Qualifications)+countNonEmpty(spec.PreferredSkills), fullQualifications)
	if strings.TrimSpace(spec.Company) != "" {
		score += weightCompany
	}

	details := 0
	for _, v := range []string{spec.Location, spec.EmploymentType, spec.Seniority} {
		if strings.TrimSpace(v) != "" {
			details++
		}
	}
	score += scaled(weightDetails, details, 3)
	score += scaled(weightRichness, len(strings.Fields(text)), fullRichnessWords)

	return min(100, max(0, int(math.Round(score))))
}

func scaled(weight float64, n, full int) float64 {
	if n <= 0 {
		return 0
	}
	return weight * float64(min(n, full)) / float64(full)
}

func countNonEmpty(items []string) int {
	n := 0
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// Extractor runs schema-constrained extraction on the lightweight model.
type Extractor struct {
	provider ai.JobSpecExtractor
	logger   *errors.Logger
}

// NewExtractor creates an extractor backed by provider.
func NewExtractor(provider ai.JobSpecExtractor, logger *errors.Logger) *Extractor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Extractor{provider: provider, logger: logger}
}

// Extract structures a job description. Empty input is rejected before any AI
// call; AI failures are returned unchanged.
func (e *Extractor) Extract(ctx context.Context, text string) (types.JobSpecResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.JobSpecResult{}, errors.NewValidationError(errors.ErrCodeEmptyContent,
			"Job description is empty", nil)
	}

	spec, usage, err := e.provider.ExtractJobSpec(ctx, types.ExtractJobSpecInput{Text: text})
	if err != nil {
		return types.JobSpecResult{}, err
	}

	spec.Normalize()
	spec.Confidence = Confidence(text, spec)

	args := []any{"title", spec.Title, "confidence", spec.Confidence}
	if usage != nil {
		args = append(args, "total_tokens", usage.TotalTokens)
	}
	e.logger.Debug("Job specification extracted", args...)

	return types.JobSpecResult{Spec: spec, Confidence: spec.Confidence}, nil
}
