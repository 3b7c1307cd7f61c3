package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/pipeline"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

const (
	tracerName          = "cvparser.api"
	multipartMemory     = 10 << 20
	defaultMaxFileBytes = 10 << 20
)

// fail records err on span and writes it.
func (s *Server) fail(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.code", errors.Code(err)))
	if statusFor(err) >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed")
	}
	writeAppError(w, err)
}

func (s *Server) ingestOptions() ingest.Options {
	opts := ingest.Options{MaxFileSize: defaultMaxFileBytes}
	if s.AppConfig != nil && s.AppConfig.App.MaxFileSize > 0 {
		opts.MaxFileSize = s.AppConfig.App.MaxFileSize
	}
	return opts
}

// readUpload ingests the multipart "file" field.
func (s *Server) readUpload(r *http.Request) (ingest.Document, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return ingest.Document{}, errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return ingest.Document{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"expected a multipart/form-data body", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return ingest.Document{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"file field is required", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return ingest.Document{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			"failed to read uploaded file", err)
	}
	return ingest.Ingest(header.Filename, data, s.ingestOptions())
}

// requestFlags applies the per-request "ai=false" switch.
func (s *Server) requestFlags(r *http.Request) pipeline.Flags {
	flags := s.Flags
	if v, err := strconv.ParseBool(r.FormValue("ai")); err == nil && !v {
		flags.AIParsingEnabled = false
	}
	return flags
}

// parseHandler handles POST /parse
func (s *Server) parseHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.parse")
	defer span.End()

	doc, err := s.readUpload(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	flags := s.requestFlags(r)
	span.SetAttributes(
		attribute.String("document.mime_type", doc.MimeType),
		attribute.Int64("document.size_bytes", doc.SizeBytes),
		attribute.Bool("ai_parsing", flags.AIParsingEnabled),
	)

	result, err := s.Pipeline.Parse(ctx, doc, flags)
	if err != nil {
		s.fail(w, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("parse.method", string(result.Method)),
		attribute.Int("parse.confidence", result.Confidence),
	)
	writeJSON(w, http.StatusOK, result)
}

// jobSpecHandler handles POST /jobspec
func (s *Server) jobSpecHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.jobspec")
	defer span.End()

	var req JobSpecRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.fail(w, span, err)
		return
	}
	if err := types.Validator().Struct(req); err != nil || strings.TrimSpace(req.Text) == "" {
		s.fail(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("text is required and at most %d characters", types.MaxJobSpecTextLength), err))
		return
	}
	span.SetAttributes(attribute.Int("request.job_length", len(req.Text)))

	result, err := s.Pipeline.ExtractJobSpec(ctx, req.Text, s.Flags)
	if err != nil {
		s.fail(w, span, err)
		return
	}

	span.SetAttributes(attribute.Int("jobspec.confidence", result.Confidence))
	writeJSON(w, http.StatusOK, result)
}

// tailorHandler handles POST /tailor
func (s *Server) tailorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.tailor")
	defer span.End()

	var req TailorRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.fail(w, span, err)
		return
	}
	if req.AdditionalContext != nil {
		span.SetAttributes(
			attribute.String("tailor.tone", string(req.AdditionalContext.Tone)),
			attribute.String("tailor.source", string(req.AdditionalContext.JobSpecSource)),
		)
	}

	result, err := s.Pipeline.Tailor(ctx, pipeline.TailorInput{
		Resume:            req.Resume,
		AdditionalContext: req.AdditionalContext,
	}, s.Flags)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// createResumeHandler handles POST /resumes: the full pipeline followed by a
// save. A failed save still returns the computed result.
func (s *Server) createResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.resumes.create")
	defer span.End()

	doc, err := s.readUpload(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}

	var addl *types.UserAdditionalContext
	if raw := strings.TrimSpace(r.FormValue("additionalContext")); raw != "" {
		if addl, err = types.DecodeAdditionalContext([]byte(raw)); err != nil {
			s.fail(w, span, err)
			return
		}
	}
	isPublic := false
	if raw := strings.TrimSpace(r.FormValue("isPublic")); raw != "" {
		if isPublic, err = strconv.ParseBool(raw); err != nil {
			s.fail(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("isPublic must be true or false, got %q", raw), err))
			return
		}
	}

	result, err := s.Pipeline.Process(ctx, pipeline.Request{
		Document:          doc,
		Flags:             s.requestFlags(r),
		AdditionalContext: addl,
	})
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.String("parse.method", string(result.Method)),
		attribute.Bool("tailored", result.Tailored),
	)

	resp := SaveResponse{Result: result}
	if result.StageError != nil {
		resp.StageError = errorBody(result.StageError)
	}

	rec := store.NewRecord(doc, r.FormValue("title"), result.Resume, result.Method, result.Confidence)
	rec.IsPublic = isPublic
	rec.AdditionalContext = addl
	saved, err := store.Save(ctx, s.Store, rec)
	s.Recorder.RecordSave(ctx, err)
	if err != nil {
		span.RecordError(err)
		s.Logger.LogError(err, "Failed to save resume, returning computed result")
		resp.PersistenceError = errorBody(err)
		writeJSON(w, statusFor(err), resp)
		return
	}

	span.SetAttributes(attribute.String("resume.slug", saved.Slug))
	resp.Resume = &saved
	writeJSON(w, http.StatusCreated, resp)
}

// getResumeHandler handles GET /resumes/{slug}. Every lookup counts as a view.
func (s *Server) getResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.resumes.get")
	defer span.End()

	rec, err := s.Store.GetResumeBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		s.fail(w, span, err)
		return
	}
	if err := s.Store.IncrementViewCount(ctx, rec.ID); err != nil {
		s.Logger.LogError(err, "Failed to count resume view", "id", rec.ID)
	} else {
		rec.ViewCount++
	}
	writeJSON(w, http.StatusOK, rec)
}

// updateResumeHandler handles PUT /resumes/{id}
func (s *Server) updateResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.resumes.update")
	defer span.End()

	var upd store.Update
	if err := parseJSONRequest(r, &upd); err != nil {
		s.fail(w, span, err)
		return
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		s.fail(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest, "title must not be empty", nil))
		return
	}

	rec, err := s.Store.UpdateResume(ctx, r.PathValue("id"), upd)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// deleteResumeHandler handles DELETE /resumes/{id}
func (s *Server) deleteResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.resumes.delete")
	defer span.End()

	if err := s.Store.DeleteResume(ctx, r.PathValue("id")); err != nil {
		s.fail(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
