package store

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

const (
	maxSlugLength   = 50
	maxSaveAttempts = 5
	fallbackSlug    = "resume"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// CreateSlug lowercases title, collapses every run of non-alphanumerics into
// one hyphen, trims hyphens at both ends and caps the result at 50
// characters. Titles with nothing usable yield "resume".
func CreateSlug(title string) string {
	slug := nonAlnumRe.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// candidateSlug appends a random 8 character suffix to base, keeping the
// whole slug within the length cap.
func candidateSlug(base string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if room := maxSlugLength - len(suffix) - 1; len(base) > room {
		base = strings.TrimRight(base[:room], "-")
	}
	return base + "-" + suffix
}

// Save assigns an id, timestamps and a slug derived from rec.Title, then
// saves through gw. A slug collision is retried with a fresh suffixed
// candidate, five attempts in total; exhausting them returns SLUG_COLLISION.
func Save(ctx context.Context, gw Gateway, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.ParsedData.Normalize()

	base := CreateSlug(rec.Title)
	rec.Slug = base

	var lastErr error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		saved, err := gw.SaveResume(ctx, rec)
		if err == nil {
			return saved, nil
		}
		if !errors.HasCode(err, errors.ErrCodeSlugCollision) {
			return Record{}, err
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Record{}, ctxErr
		}
		rec.Slug = candidateSlug(base)
	}

	return Record{}, errors.NewPersistenceError(errors.ErrCodeSlugCollision,
		"Could not find a free slug", lastErr).
		WithContext("base", base).
		WithContext("attempts", maxSaveAttempts)
}
