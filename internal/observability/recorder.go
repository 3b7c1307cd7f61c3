package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ai"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/pipeline"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// Recorder turns pipeline, store and server events into metrics, honouring
// the custom metric switches.
type Recorder struct {
	m      *Metrics
	custom config.CustomMetricsConfig
}

var _ pipeline.Recorder = (*Recorder)(nil)

// NewRecorder returns a recorder for om. A nil or disabled manager yields a
// recorder that records nothing.
func NewRecorder(om *ObservabilityManager) *Recorder {
	return &Recorder{m: om.GetMetrics(), custom: om.CustomMetrics()}
}

func (r *Recorder) business() bool {
	return r.custom.BusinessMetrics.Enabled
}

// RecordParse counts a finished parse by method.
func (r *Recorder) RecordParse(ctx context.Context, method types.ParseMethod, fellBack bool) {
	if !r.business() || r.m.ResumesParsed == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("method", string(method)))
	r.m.ResumesParsed.Add(ctx, 1, attrs)
	if fellBack {
		r.m.ParseFallbacks.Add(ctx, 1, attrs)
	}
}

// RecordStage records a stage duration and, for AI backed stages, the
// request and error counts.
func (r *Recorder) RecordStage(ctx context.Context, stage pipeline.Stage, d time.Duration, err error) {
	if r.m.StageDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("stage", string(stage)),
		attribute.Bool("success", err == nil),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error_code", errors.Code(err)))
	}
	opt := metric.WithAttributes(attrs...)

	if r.custom.AIOperations.Enabled && r.custom.AIOperations.TrackDuration {
		r.m.StageDuration.Record(ctx, d.Seconds(), opt)
	}

	switch stage {
	case pipeline.StageJobSpec, pipeline.StageTailor:
		if r.custom.AIOperations.Enabled {
			r.m.AIRequestCount.Add(ctx, 1, opt)
			r.m.AIProcessingTime.Record(ctx, d.Seconds(), opt)
			if err != nil {
				r.m.AIErrorCount.Add(ctx, 1, opt)
			}
		}
		if r.business() && err == nil {
			if stage == pipeline.StageJobSpec {
				r.m.JobSpecsExtracted.Add(ctx, 1)
			} else {
				r.m.ResumesTailored.Add(ctx, 1)
			}
		}
	}
}

// RecordTokens records token usage of one AI call.
func (r *Recorder) RecordTokens(ctx context.Context, operation string, usage *ai.TokenUsage) {
	if usage == nil || r.m.AITokenUsage == nil {
		return
	}
	if !r.custom.AIOperations.Enabled || !r.custom.AIOperations.TrackTokenUsage {
		return
	}
	for _, tt := range []struct {
		kind  string
		value int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		r.m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.kind),
		))
	}
}

// RecordSave counts a save attempt and exhausted slug candidates.
func (r *Recorder) RecordSave(ctx context.Context, err error) {
	if r.m.ResumesSaved == nil || !r.custom.Infrastructure.TrackStore {
		return
	}
	r.m.ResumesSaved.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
	if errors.HasCode(err, errors.ErrCodeSlugCollision) {
		r.m.SlugCollisions.Add(ctx, 1)
	}
}

// RecordRateLimitHit counts a rejected request.
func (r *Recorder) RecordRateLimitHit(ctx context.Context, clientIP string) {
	if r.m.RateLimitHits == nil || !r.custom.Infrastructure.TrackRateLimits {
		return
	}
	r.m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("client_ip", clientIP)))
}
