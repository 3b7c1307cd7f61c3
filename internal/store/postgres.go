package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

const uniqueViolation = "23505"

// SchemaSQL creates the resumes table when it does not exist.
const SchemaSQL = `CREATE TABLE IF NOT EXISTS resumes (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT,
	title              TEXT NOT NULL,
	slug               TEXT NOT NULL,
	original_filename  TEXT NOT NULL DEFAULT '',
	file_type          TEXT NOT NULL DEFAULT '',
	file_size          BIGINT NOT NULL DEFAULT 0,
	parsed_data        JSONB NOT NULL,
	parse_method       TEXT NOT NULL,
	confidence_score   INTEGER NOT NULL CHECK (confidence_score BETWEEN 0 AND 100),
	is_public          BOOLEAN NOT NULL DEFAULT FALSE,
	additional_context JSONB,
	view_count         BIGINT NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	CONSTRAINT resumes_slug_key UNIQUE (slug)
)`

const recordColumns = `id, user_id, title, slug, original_filename, file_type, file_size,
	parsed_data, parse_method, confidence_score, is_public, additional_context,
	view_count, created_at, updated_at`

// PostgresGateway stores records in PostgreSQL through database/sql and the
// pgx driver.
type PostgresGateway struct {
	db *sql.DB
}

var _ Gateway = (*PostgresGateway)(nil)

// NewPostgresGateway wraps an open database handle
func NewPostgresGateway(db *sql.DB) *PostgresGateway {
	return &PostgresGateway{db: db}
}

// OpenPostgres opens and pings a pooled connection.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresGateway, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, errPersistence("Failed to open database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errPersistence("Failed to reach database", err)
	}
	return NewPostgresGateway(db), nil
}

// EnsureSchema creates the resumes table if needed
func (p *PostgresGateway) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, SchemaSQL); err != nil {
		return errPersistence("Failed to create resumes table", err)
	}
	return nil
}

func (p *PostgresGateway) SaveResume(ctx context.Context, rec Record) (Record, error) {
	parsed, err := json.Marshal(rec.ParsedData)
	if err != nil {
		return Record{}, errPersistence("Failed to encode parsed data", err)
	}
	var addl []byte
	if rec.AdditionalContext != nil {
		if addl, err = json.Marshal(rec.AdditionalContext); err != nil {
			return Record{}, errPersistence("Failed to encode additional context", err)
		}
	}

	_, err = p.db.ExecContext(ctx, `INSERT INTO resumes (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rec.ID, nullString(rec.UserID), rec.Title, rec.Slug, rec.OriginalFilename,
		rec.FileType, rec.FileSize, parsed, string(rec.ParseMethod), rec.ConfidenceScore,
		rec.IsPublic, addl, rec.ViewCount, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isSlugViolation(err) {
			return Record{}, errSlugCollision(rec.Slug, err)
		}
		return Record{}, errPersistence("Failed to insert resume", err)
	}
	return rec, nil
}

func (p *PostgresGateway) GetResumeBySlug(ctx context.Context, slug string) (Record, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM resumes WHERE slug = $1`, slug)
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, errNotFound("Resume", slug)
	}
	if err != nil {
		return Record{}, errPersistence("Failed to load resume", err)
	}
	return rec, nil
}

func (p *PostgresGateway) UpdateResume(ctx context.Context, id string, upd Update) (Record, error) {
	var parsed []byte
	if upd.ParsedData != nil {
		data := upd.ParsedData.Clone()
		data.Normalize()
		var err error
		if parsed, err = json.Marshal(data); err != nil {
			return Record{}, errPersistence("Failed to encode parsed data", err)
		}
	}

	row := p.db.QueryRowContext(ctx, `UPDATE resumes SET
			title = COALESCE($2::text, title),
			parsed_data = COALESCE($3::jsonb, parsed_data),
			is_public = COALESCE($4::boolean, is_public),
			updated_at = $5
		WHERE id = $1
		RETURNING `+recordColumns,
		id, upd.Title, parsed, upd.IsPublic, time.Now().UTC())
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, errNotFound("Resume", id)
	}
	if err != nil {
		return Record{}, errPersistence("Failed to update resume", err)
	}
	return rec, nil
}

func (p *PostgresGateway) DeleteResume(ctx context.Context, id string) error {
	return p.execOne(ctx, id, "delete", `DELETE FROM resumes WHERE id = $1`)
}

func (p *PostgresGateway) IncrementViewCount(ctx context.Context, id string) error {
	return p.execOne(ctx, id, "count view for", `UPDATE resumes SET view_count = view_count + 1 WHERE id = $1`)
}

// execOne runs a statement that must touch exactly the row with id.
func (p *PostgresGateway) execOne(ctx context.Context, id, verb, query string) error {
	res, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return errPersistence(fmt.Sprintf("Failed to %s resume", verb), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errPersistence(fmt.Sprintf("Failed to %s resume", verb), err)
	}
	if n == 0 {
		return errNotFound("Resume", id)
	}
	return nil
}

func (p *PostgresGateway) Close() error {
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec    Record
		userID sql.NullString
		method string
		parsed []byte
		addl   []byte
	)
	err := row.Scan(&rec.ID, &userID, &rec.Title, &rec.Slug, &rec.OriginalFilename,
		&rec.FileType, &rec.FileSize, &parsed, &method, &rec.ConfidenceScore,
		&rec.IsPublic, &addl, &rec.ViewCount, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}

	rec.UserID = userID.String
	rec.ParseMethod = types.ParseMethod(method)
	if err := json.Unmarshal(parsed, &rec.ParsedData); err != nil {
		return Record{}, fmt.Errorf("decode parsed_data: %w", err)
	}
	rec.ParsedData.Normalize()
	if len(addl) > 0 {
		rec.AdditionalContext = &types.UserAdditionalContext{}
		if err := json.Unmarshal(addl, rec.AdditionalContext); err != nil {
			return Record{}, fmt.Errorf("decode additional_context: %w", err)
		}
	}
	return rec, nil
}

func isSlugViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return pgErr.ConstraintName == "" || strings.Contains(pgErr.ConstraintName, "slug")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
