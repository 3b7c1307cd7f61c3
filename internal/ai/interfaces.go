package ai

import (
	"context"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// ResumeParser turns resume text or a PDF into a ParsedResume
type ResumeParser interface {
	ParseResume(ctx context.Context, input types.ParseResumeInput) (types.ParsedResume, *TokenUsage, error)
	ParseResumePDF(ctx context.Context, input types.ParseResumePDFInput) (types.ParsedResume, *TokenUsage, error)
}

// JobSpecExtractor turns a job description into a JobSpecification
type JobSpecExtractor interface {
	ExtractJobSpec(ctx context.Context, input types.ExtractJobSpecInput) (types.JobSpecification, *TokenUsage, error)
}

// ResumeTailorer rewrites a resume towards a job specification
type ResumeTailorer interface {
	TailorResume(ctx context.Context, input types.TailorResumeInput) (types.TailorResumeOutput, *TokenUsage, error)
}

// AIProvider interface for different AI implementations.
// Every call returns token usage; callers can ignore it.
type AIProvider interface {
	ResumeParser
	JobSpecExtractor
	ResumeTailorer
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
