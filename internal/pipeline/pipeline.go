// Package pipeline orchestrates ingestion output through parsing, job
// description extraction and tailoring. It never persists anything.
package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ai"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/jobspec"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/tailor"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// Flags switch pipeline features per call.
type Flags struct {
	AIParsingEnabled    bool `json:"aiParsingEnabled"`
	JobTailoringEnabled bool `json:"jobTailoringEnabled"`
	PDFTextFallback     bool `json:"pdfTextFallback"`
}

// FlagsFromConfig builds the startup flags.
func FlagsFromConfig(cfg config.PipelineConfig) Flags {
	return Flags{
		AIParsingEnabled:    cfg.AIParsingEnabled,
		JobTailoringEnabled: cfg.JobTailoringEnabled,
		PDFTextFallback:     cfg.PDFTextFallback,
	}
}

// Stage names a pipeline step.
type Stage string

const (
	StageParse   Stage = "parse"
	StageJobSpec Stage = "jobspec"
	StageTailor  Stage = "tailor"
)

// StageReport records how one step went.
type StageReport struct {
	Stage      Stage             `json:"stage"`
	Method     types.ParseMethod `json:"method,omitempty"`
	DurationMS int64             `json:"durationMs"`
	Error      string            `json:"error,omitempty"`
}

// Recorder receives pipeline measurements.
type Recorder interface {
	RecordParse(ctx context.Context, method types.ParseMethod, fellBack bool)
	RecordStage(ctx context.Context, stage Stage, d time.Duration, err error)
	RecordTokens(ctx context.Context, operation string, usage *ai.TokenUsage)
}

type nopRecorder struct{}

func (nopRecorder) RecordParse(context.Context, types.ParseMethod, bool)      {}
func (nopRecorder) RecordStage(context.Context, Stage, time.Duration, error) {}
func (nopRecorder) RecordTokens(context.Context, string, *ai.TokenUsage)     {}

// Options wires a Pipeline. Nil AI dependencies mean the matching feature is
// unavailable regardless of flags.
type Options struct {
	Parser    ai.ResumeParser
	Extractor ai.JobSpecExtractor
	Tailorer  ai.ResumeTailorer
	Loader    *JobSpecLoader
	Recorder  Recorder
	Logger    *errors.Logger
}

// Pipeline runs resume submissions end to end.
type Pipeline struct {
	parser    ai.ResumeParser
	extractor *jobspec.Extractor
	engine    *tailor.Engine
	loader    *JobSpecLoader
	recorder  Recorder
	logger    *errors.Logger
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		parser:   opts.Parser,
		loader:   opts.Loader,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
	if p.logger == nil {
		p.logger = errors.NewNopLogger()
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	if p.loader == nil {
		p.loader = NewJobSpecLoader(nil)
	}
	if opts.Extractor != nil {
		p.extractor = jobspec.NewExtractor(opts.Extractor, p.logger)
	}
	if opts.Tailorer != nil {
		p.engine = tailor.NewEngine(opts.Tailorer, p.logger)
	}
	return p
}

// Parse runs the strategy chain for doc. Only AI_UNAVAILABLE and
// SCHEMA_VALIDATION_FAILED move on to the next strategy; the last failure is
// returned when the chain is exhausted.
func (p *Pipeline) Parse(ctx context.Context, doc ingest.Document, flags Flags) (types.ParseResult, error) {
	chain := p.Chain(doc, flags)
	if len(chain) == 0 {
		return types.ParseResult{}, errors.NewValidationError(errors.ErrCodeUnsupportedInput,
			"PDF resumes require AI parsing, which is disabled", nil).
			WithContext("mime_type", doc.MimeType)
	}

	var lastErr error
	for i, strategy := range chain {
		resume, confidence, err := strategy.Run(ctx, doc)
		if err == nil {
			resume.Normalize()
			p.recorder.RecordParse(ctx, strategy.Method, i > 0)
			if i > 0 {
				p.logger.Warn("Resume parsed by fallback strategy",
					"method", string(strategy.Method), "cause", errors.Code(lastErr))
			}
			return types.ParseResult{Resume: resume, Method: strategy.Method, Confidence: confidence}, nil
		}
		lastErr = err
		if ctx.Err() != nil || !errors.IsAIUnavailable(err) {
			return types.ParseResult{}, err
		}
		p.logger.Debug("Parse strategy failed", "method", string(strategy.Method), "code", errors.Code(err))
	}
	return types.ParseResult{}, lastErr
}

// ExtractJobSpec structures a job description.
func (p *Pipeline) ExtractJobSpec(ctx context.Context, text string, flags Flags) (types.JobSpecResult, error) {
	if err := p.tailoringAvailable(flags); err != nil {
		return types.JobSpecResult{}, err
	}
	return p.extractor.Extract(ctx, text)
}

// TailorInput is a standalone tailoring call.
type TailorInput struct {
	Resume            types.ParsedResume
	AdditionalContext *types.UserAdditionalContext
	// JobSpecText overrides the description referenced by AdditionalContext.
	JobSpecText string
}

// Tailor resolves and extracts the job description, then tailors resume to it.
func (p *Pipeline) Tailor(ctx context.Context, in TailorInput, flags Flags) (types.TailorResult, error) {
	if err := p.tailoringAvailable(flags); err != nil {
		return types.TailorResult{}, err
	}
	if in.AdditionalContext == nil {
		return types.TailorResult{}, errors.NewValidationError(errors.ErrCodeInvalidContext,
			"Tailoring needs additional context", nil)
	}
	if err := in.AdditionalContext.Validate(); err != nil {
		return types.TailorResult{}, err
	}

	text, err := p.jobSpecText(ctx, in.AdditionalContext, in.JobSpecText)
	if err != nil {
		return types.TailorResult{}, err
	}
	spec, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return types.TailorResult{}, err
	}
	return p.tailor(ctx, in.Resume, spec, in.AdditionalContext)
}

func (p *Pipeline) tailor(ctx context.Context, resume types.ParsedResume, spec types.JobSpecResult, addl *types.UserAdditionalContext) (types.TailorResult, error) {
	return p.engine.Tailor(ctx, tailor.Request{
		Original:       resume,
		Spec:           spec.Spec,
		SpecConfidence: spec.Confidence,
		Tone:           addl.Tone,
		ExtraPrompt:    addl.ExtraPrompt,
	})
}

func (p *Pipeline) tailoringAvailable(flags Flags) error {
	if !flags.JobTailoringEnabled {
		return errors.NewValidationError(errors.ErrCodeFeatureDisabled,
			"Job tailoring is disabled", nil)
	}
	if p.extractor == nil || p.engine == nil {
		return errors.NewAIError(errors.ErrCodeAIUnavailable,
			"Job tailoring has no AI model configured", nil)
	}
	return nil
}

func (p *Pipeline) jobSpecText(ctx context.Context, addl *types.UserAdditionalContext, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return p.loader.Load(ctx, addl)
}

// Request is one end-to-end submission.
type Request struct {
	Document          ingest.Document
	Flags             Flags
	AdditionalContext *types.UserAdditionalContext
	// JobSpecText overrides the description referenced by AdditionalContext.
	JobSpecText string
}

// PipelineResult is everything a submission produced. When tailoring fails
// after a successful parse, Resume holds the untailored resume and
// FailedStage/StageError name the step that failed.
type PipelineResult struct {
	Resume      types.ParsedResume   `json:"resume"`
	Original    *types.ParsedResume  `json:"original,omitempty"`
	Method      types.ParseMethod    `json:"method"`
	Confidence  int                  `json:"confidence"`
	JobSpec     *types.JobSpecResult `json:"jobSpec,omitempty"`
	Tailored    bool                 `json:"tailored"`
	Commentary  string               `json:"commentary,omitempty"`
	Stages      []StageReport        `json:"stages"`
	FailedStage Stage                `json:"failedStage,omitempty"`
	StageError  error                `json:"-"`
}

// StageErrorCode returns the code of the failed stage's error.
func (r PipelineResult) StageErrorCode() string {
	return errors.Code(r.StageError)
}

type stageLog struct {
	mu      sync.Mutex
	reports []StageReport
}

func (l *stageLog) add(r StageReport) {
	l.mu.Lock()
	l.reports = append(l.reports, r)
	l.mu.Unlock()
}

// timed runs fn as stage, recording its duration and outcome.
func (p *Pipeline) timed(ctx context.Context, stages *stageLog, stage Stage, fn func() (types.ParseMethod, error)) error {
	start := time.Now()
	method, err := fn()
	d := time.Since(start)
	p.recorder.RecordStage(ctx, stage, d, err)

	report := StageReport{Stage: stage, Method: method, DurationMS: d.Milliseconds()}
	if err != nil {
		report.Error = errors.Code(err)
	}
	stages.add(report)
	return err
}

// Process parses the document and, when context is given and tailoring is
// enabled, extracts the job description concurrently and tailors the parsed
// resume once both are done. A parse failure fails the call; a job
// description or tailoring failure is reported on the result instead.
func (p *Pipeline) Process(ctx context.Context, req Request) (PipelineResult, error) {
	wantTailor := req.AdditionalContext != nil
	if wantTailor {
		if err := req.AdditionalContext.Validate(); err != nil {
			return PipelineResult{}, err
		}
		if err := p.tailoringAvailable(req.Flags); err != nil {
			return PipelineResult{}, err
		}
	}

	var (
		stages  stageLog
		parsed  types.ParseResult
		spec    types.JobSpecResult
		specErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.timed(gctx, &stages, StageParse, func() (types.ParseMethod, error) {
			var err error
			parsed, err = p.Parse(gctx, req.Document, req.Flags)
			return parsed.Method, err
		})
	})
	if wantTailor {
		g.Go(func() error {
			specErr = p.timed(gctx, &stages, StageJobSpec, func() (types.ParseMethod, error) {
				text, err := p.jobSpecText(gctx, req.AdditionalContext, req.JobSpecText)
				if err != nil {
					return "", err
				}
				spec, err = p.extractor.Extract(gctx, text)
				return "", err
			})
			// A job description failure must not cancel the parse.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PipelineResult{}, err
	}

	result := PipelineResult{
		Resume:     parsed.Resume,
		Method:     parsed.Method,
		Confidence: parsed.Confidence,
	}
	if !wantTailor {
		result.Stages = stages.reports
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return PipelineResult{}, err
	}

	if specErr != nil {
		result.FailedStage = StageJobSpec
		result.StageError = specErr
		result.Stages = stages.reports
		p.logger.LogError(specErr, "Job description extraction failed, returning untailored resume")
		return result, nil
	}
	result.JobSpec = &spec

	var tailored types.TailorResult
	tailorErr := p.timed(ctx, &stages, StageTailor, func() (types.ParseMethod, error) {
		var err error
		tailored, err = p.tailor(ctx, parsed.Resume, spec, req.AdditionalContext)
		return "", err
	})
	result.Stages = stages.reports
	if tailorErr != nil {
		if ctx.Err() != nil {
			return PipelineResult{}, ctx.Err()
		}
		result.FailedStage = StageTailor
		result.StageError = tailorErr
		p.logger.LogError(tailorErr, "Tailoring failed, returning untailored resume")
		return result, nil
	}

	original := parsed.Resume
	result.Original = &original
	result.Resume = tailored.Resume
	result.Tailored = true
	result.Commentary = tailored.Commentary
	return result, nil
}
