package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

func TestCreateSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Jane Doe Resume", "jane-doe-resume"},
		{"symbols", "Senior Engineer @ Acme!!", "senior-engineer-acme"},
		{"punctuation runs collapse", "Jane -- Doe!!  (2024)", "jane-doe-2024"},
		{"leading and trailing junk", "  ***Senior Engineer***  ", "senior-engineer"},
		{"unicode dropped", "Zoë Åberg", "zo-berg"},
		{"nothing usable", "!!! ???", "resume"},
		{"empty", "", "resume"},
		{"long title capped", strings.Repeat("word ", 20), strings.TrimRight(strings.Repeat("word-", 10), "-")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateSlug(tt.title)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), maxSlugLength)
			assert.False(t, strings.HasPrefix(got, "-") || strings.HasSuffix(got, "-"))
		})
	}
}

func TestCandidateSlugStaysWithinCap(t *testing.T) {
	base := CreateSlug(strings.Repeat("a", 80))
	got := candidateSlug(base)

	assert.LessOrEqual(t, len(got), maxSlugLength)
	assert.Regexp(t, `^a+-[0-9a-f]{8}$`, got)
	assert.NotEqual(t, got, candidateSlug(base))
}

// collidingGateway reports a collision for the first n saves.
type collidingGateway struct {
	*MemoryGateway
	collisions int
	attempts   []string
}

func (g *collidingGateway) SaveResume(ctx context.Context, rec Record) (Record, error) {
	g.attempts = append(g.attempts, rec.Slug)
	if len(g.attempts) <= g.collisions {
		return Record{}, errSlugCollision(rec.Slug, nil)
	}
	return g.MemoryGateway.SaveResume(ctx, rec)
}

func testRecord(title string) Record {
	resume := types.NewParsedResume()
	resume.Name = "Jane Doe"
	resume.Skills = []string{"Go", "SQL"}
	return Record{
		Title:           title,
		ParsedData:      resume,
		ParseMethod:     types.ParseMethodRegex,
		ConfidenceScore: 72,
	}
}

func TestSaveAssignsIdentity(t *testing.T) {
	gw := NewMemoryGateway()

	saved, err := Save(context.Background(), gw, testRecord("Jane Doe"))
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "jane-doe", saved.Slug)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)
	assert.Equal(t, 1, gw.Len())
}

func TestSaveRetriesOnCollision(t *testing.T) {
	gw := &collidingGateway{MemoryGateway: NewMemoryGateway(), collisions: 2}

	saved, err := Save(context.Background(), gw, testRecord("Jane Doe"))
	require.NoError(t, err)

	require.Len(t, gw.attempts, 3)
	assert.Equal(t, "jane-doe", gw.attempts[0])
	assert.Regexp(t, `^jane-doe-[0-9a-f]{8}$`, gw.attempts[1])
	assert.NotEqual(t, gw.attempts[1], gw.attempts[2])
	assert.Equal(t, gw.attempts[2], saved.Slug)
}

func TestSaveSecondIdenticalTitleGetsSuffix(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	first, err := Save(ctx, gw, testRecord("Jane Doe"))
	require.NoError(t, err)
	second, err := Save(ctx, gw, testRecord("Jane Doe"))
	require.NoError(t, err)

	assert.Equal(t, "jane-doe", first.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "jane-doe-"))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSaveGivesUpAfterFiveAttempts(t *testing.T) {
	gw := &collidingGateway{MemoryGateway: NewMemoryGateway(), collisions: 100}

	_, err := Save(context.Background(), gw, testRecord("Jane Doe"))
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, errors.ErrCodeSlugCollision))
	assert.Len(t, gw.attempts, maxSaveAttempts)
	assert.Equal(t, 0, gw.Len())
}

func TestSaveDoesNotRetryOtherErrors(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()
	rec := testRecord("Jane Doe")
	rec.ID = "fixed-id"

	_, err := Save(ctx, gw, rec)
	require.NoError(t, err)

	rec.Title = "Someone Else"
	_, err = Save(ctx, gw, rec)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePersistenceError))
}
