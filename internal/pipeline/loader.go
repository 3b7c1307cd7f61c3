package pipeline

import (
	"context"
	"strings"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// JobSpecLoader resolves the job description text referenced by a tailoring
// request.
type JobSpecLoader struct {
	fetcher *ingest.Fetcher
}

// NewJobSpecLoader returns a loader. A nil fetcher gets the default one.
func NewJobSpecLoader(fetcher *ingest.Fetcher) *JobSpecLoader {
	if fetcher == nil {
		fetcher = ingest.NewFetcher(nil, 0, ingest.Options{})
	}
	return &JobSpecLoader{fetcher: fetcher}
}

// Load returns pasted text as is and downloads uploaded descriptions.
func (l *JobSpecLoader) Load(ctx context.Context, addl *types.UserAdditionalContext) (string, error) {
	switch addl.JobSpecSource {
	case types.JobSpecSourcePasted:
		if strings.TrimSpace(addl.JobSpecText) == "" {
			return "", errors.NewValidationError(errors.ErrCodeEmptyContent,
				"Pasted job description is empty", nil)
		}
		return addl.JobSpecText, nil

	case types.JobSpecSourceUpload:
		doc, err := l.fetcher.Fetch(ctx, addl.JobSpecFileURL)
		if err != nil {
			return "", err
		}
		return doc.Content, nil

	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidContext,
			"Unknown job description source", nil).
			WithContext("source", string(addl.JobSpecSource))
	}
}
