// Package store owns the durable lifecycle of saved resumes. The pipeline
// never writes here; callers save its result once every step succeeded.
package store

import (
	"context"
	"time"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// Record is a saved resume.
type Record struct {
	ID                string                       `json:"id"`
	UserID            string                       `json:"userId,omitempty"`
	Title             string                       `json:"title"`
	Slug              string                       `json:"slug"`
	OriginalFilename  string                       `json:"originalFilename"`
	FileType          string                       `json:"fileType"`
	FileSize          int64                        `json:"fileSize"`
	ParsedData        types.ParsedResume           `json:"parsedData"`
	ParseMethod       types.ParseMethod            `json:"parseMethod"`
	ConfidenceScore   int                          `json:"confidenceScore"`
	IsPublic          bool                         `json:"isPublic"`
	AdditionalContext *types.UserAdditionalContext `json:"additionalContext,omitempty"`
	ViewCount         int64                        `json:"viewCount"`
	CreatedAt         time.Time                    `json:"createdAt"`
	UpdatedAt         time.Time                    `json:"updatedAt"`
}

// NewRecord describes a parsed upload ready for Save. An empty title falls
// back to the resume's name, then to the file name.
func NewRecord(doc ingest.Document, title string, resume types.ParsedResume, method types.ParseMethod, confidence int) Record {
	if title == "" {
		title = resume.Name
	}
	if title == "" {
		title = doc.Filename
	}
	return Record{
		Title:            title,
		OriginalFilename: doc.Filename,
		FileType:         doc.MimeType,
		FileSize:         doc.SizeBytes,
		ParsedData:       resume,
		ParseMethod:      method,
		ConfidenceScore:  confidence,
	}
}

// Update is an explicit user edit. Nil fields are left unchanged.
type Update struct {
	Title      *string             `json:"title,omitempty"`
	ParsedData *types.ParsedResume `json:"parsedData,omitempty"`
	IsPublic   *bool               `json:"isPublic,omitempty"`
}

// Gateway persists resume records.
type Gateway interface {
	// SaveResume inserts rec under rec.Slug. It fails with SLUG_COLLISION
	// when the slug is taken and PERSISTENCE_ERROR otherwise.
	SaveResume(ctx context.Context, rec Record) (Record, error)
	GetResumeBySlug(ctx context.Context, slug string) (Record, error)
	UpdateResume(ctx context.Context, id string, upd Update) (Record, error)
	DeleteResume(ctx context.Context, id string) error
	IncrementViewCount(ctx context.Context, id string) error
	Close() error
}

func errSlugCollision(slug string, cause error) error {
	return errors.NewPersistenceError(errors.ErrCodeSlugCollision,
		"Slug already in use", cause).WithContext("slug", slug)
}

func errNotFound(what, key string) error {
	return errors.NewPersistenceError(errors.ErrCodeNotFound,
		what+" not found", nil).WithContext("key", key)
}

func errPersistence(message string, cause error) error {
	return errors.NewPersistenceError(errors.ErrCodePersistenceError, message, cause)
}

func (u Update) apply(rec *Record) {
	if u.Title != nil {
		rec.Title = *u.Title
	}
	if u.ParsedData != nil {
		data := u.ParsedData.Clone()
		data.Normalize()
		rec.ParsedData = data
	}
	if u.IsPublic != nil {
		rec.IsPublic = *u.IsPublic
	}
}
