package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	apperrors "github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/schema"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

const modelCheckTimeout = 10 * time.Second

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type getModelFunc func(ctx context.Context, model string, cfg *genai.GetModelConfig) (*genai.Model, error)

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	generate       generateFunc
	getModel       getModelFunc
	config         *config.OperationAIConfig
	operation      string
	circuitBreaker *AICircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *apperrors.Logger
}

// Ensure GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *apperrors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeMissingAPIKey,
			fmt.Sprintf("No Gemini API key configured for operation %s", operationType), nil)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIUnavailable,
			"Failed to create Gemini client", err)
	}

	g := newProvider(cfg, operationType, logger, client.Models.GenerateContent, client.Models.Get)
	g.client = client
	return g, nil
}

func newProvider(cfg *config.OperationAIConfig, operationType string, logger *apperrors.Logger, generate generateFunc, getModel getModelFunc) *GeminiProvider {
	if logger == nil {
		logger = apperrors.NewNopLogger()
	}
	return &GeminiProvider{
		generate:       generate,
		getModel:       getModel,
		config:         cfg,
		operation:      operationType,
		circuitBreaker: NewAICircuitBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}
}

func (g *GeminiProvider) maxRetries() int {
	if g.config.MaxRetries == nil || *g.config.MaxRetries < 0 {
		return 0
	}
	return *g.config.MaxRetries
}

func (g *GeminiProvider) temperature() float32 {
	if g.config.Temperature == nil {
		return 0
	}
	return *g.config.Temperature
}

func (g *GeminiProvider) timeout() time.Duration {
	if g.config.Timeout == nil {
		return 0
	}
	return *g.config.Timeout
}

func (g *GeminiProvider) useSystemPrompts() bool {
	return g.config.UseSystemPrompts != nil && *g.config.UseSystemPrompts
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model.
// Callers without a deadline get a default one.
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, modelCheckTimeout)
		defer cancel()
	}

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.getModel(ctx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	if model != nil {
		modelInfo.DisplayName = model.DisplayName
		modelInfo.Version = model.Version
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error
	maxRetries := g.maxRetries()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	if maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// backoff is 2^(attempt-1) seconds plus up to 10% jitter, capped at 30s.
func backoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(j.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isTransientStatus(apiErr.Code)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return isTransientStatus(genaiErr.Code)
	}

	return false
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// decodeValidated checks a model answer against doc before unmarshalling it.
// Any deviation is reported as is; nothing is coerced.
func decodeValidated[Out any](text string, doc *schema.Schema) (Out, error) {
	var output Out
	raw := []byte(strings.TrimSpace(text))
	if len(raw) == 0 {
		return output, apperrors.NewAIError(apperrors.ErrCodeSchemaValidationFailed,
			"AI returned an empty response", nil)
	}
	if err := doc.Validate(raw); err != nil {
		return output, apperrors.NewAIError(apperrors.ErrCodeSchemaValidationFailed,
			fmt.Sprintf("AI response does not match the %s schema", doc.Name), err)
	}
	if err := json.Unmarshal(raw, &output); err != nil {
		return output, apperrors.NewAIError(apperrors.ErrCodeSchemaValidationFailed,
			fmt.Sprintf("Failed to decode %s response", doc.Name), err)
	}
	return output, nil
}

// executeAIOperation is a generic helper to run AI operations with common
// tracing, circuit breaker, schema validation and decoding.
func executeAIOperation[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	contents []*genai.Content,
	systemPrompt string,
	doc *schema.Schema,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	tracer := otel.Tracer("cvparser.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.temperature())),
	)
	span.SetAttributes(spanAttributes...)

	temperature := g.temperature()
	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(doc),
		Temperature:      &temperature,
	}
	if g.useSystemPrompts() && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	callCtx := ctx
	if d := g.timeout(); d > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(callCtx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.generate(callCtx, g.config.Model, contents, genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		if ctx.Err() != nil {
			return output, nil, ctx.Err()
		}
		msg := "Failed to generate content for " + operationName
		if isBreakerRejection(err) {
			msg = "Circuit breaker rejected " + operationName
		}
		g.logger.LogError(err, msg, "operation", operationName, "model", g.config.Model)
		return output, nil, apperrors.NewAIError(apperrors.ErrCodeAIUnavailable, msg, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	output, err = decodeValidated[Out](result.Text(), doc)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.LogError(err, "AI response rejected", "operation", operationName)
		return output, tokenUsage, err
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// ParseResume extracts a structured resume from plain text
func (g *GeminiProvider) ParseResume(ctx context.Context, input types.ParseResumeInput) (types.ParsedResume, *TokenUsage, error) {
	if strings.TrimSpace(input.Text) == "" {
		return types.ParsedResume{}, nil, apperrors.NewValidationError(apperrors.ErrCodeEmptyContent,
			"Resume text is empty", nil)
	}

	systemPrompt, userTemplate := g.promptsFor(promptParseResume)
	output, usage, err := executeAIOperation[types.ParsedResume](
		g, ctx, "parse_resume",
		genai.Text(fillTemplate(userTemplate, input.Text)),
		systemPrompt,
		schema.ParsedResume,
		attribute.Int("input.text_length", len(input.Text)),
	)
	if err != nil {
		return types.ParsedResume{}, usage, err
	}
	output.Normalize()
	return output, usage, nil
}

// ParseResumePDF sends the PDF bytes inline and extracts a structured resume
func (g *GeminiProvider) ParseResumePDF(ctx context.Context, input types.ParseResumePDFInput) (types.ParsedResume, *TokenUsage, error) {
	if len(input.Data) == 0 {
		return types.ParsedResume{}, nil, apperrors.NewValidationError(apperrors.ErrCodeEmptyContent,
			"PDF document is empty", nil)
	}

	systemPrompt, userTemplate := g.promptsFor(promptParseResumePDF)
	parts := []*genai.Part{
		genai.NewPartFromBytes(input.Data, "application/pdf"),
		genai.NewPartFromText(fillTemplate(userTemplate)),
	}
	output, usage, err := executeAIOperation[types.ParsedResume](
		g, ctx, "parse_resume_pdf",
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		systemPrompt,
		schema.ParsedResume,
		attribute.Int("input.pdf_bytes", len(input.Data)),
		attribute.String("input.filename", input.Filename),
	)
	if err != nil {
		return types.ParsedResume{}, usage, err
	}
	output.Normalize()
	return output, usage, nil
}

// ExtractJobSpec extracts a job specification. Confidence is left at zero for
// the caller to compute.
func (g *GeminiProvider) ExtractJobSpec(ctx context.Context, input types.ExtractJobSpecInput) (types.JobSpecification, *TokenUsage, error) {
	if strings.TrimSpace(input.Text) == "" {
		return types.JobSpecification{}, nil, apperrors.NewValidationError(apperrors.ErrCodeEmptyContent,
			"Job description is empty", nil)
	}

	systemPrompt, userTemplate := g.promptsFor(promptExtractJobSpec)
	output, usage, err := executeAIOperation[types.JobSpecification](
		g, ctx, "extract_job_spec",
		genai.Text(fillTemplate(userTemplate, input.Text)),
		systemPrompt,
		schema.JobSpecification,
		attribute.Int("input.job_length", len(input.Text)),
	)
	if err != nil {
		return types.JobSpecification{}, usage, err
	}
	output.Normalize()
	output.Confidence = 0
	return output, usage, nil
}

// TailorResume rewrites a resume towards a job specification. The answer is
// the raw model output; fact preservation is the caller's job.
func (g *GeminiProvider) TailorResume(ctx context.Context, input types.TailorResumeInput) (types.TailorResumeOutput, *TokenUsage, error) {
	// Caller-owned presentation data is not sent to the model.
	modelView := input.Resume.Clone()
	modelView.CustomColors = nil
	modelView.ProfileImage = ""

	resumeJSON, err := json.MarshalIndent(modelView, "", "  ")
	if err != nil {
		return types.TailorResumeOutput{}, nil, apperrors.NewAIError(apperrors.ErrCodeTailoringFailed,
			"Failed to encode resume", err)
	}
	specJSON, err := json.MarshalIndent(input.JobSpec, "", "  ")
	if err != nil {
		return types.TailorResumeOutput{}, nil, apperrors.NewAIError(apperrors.ErrCodeTailoringFailed,
			"Failed to encode job specification", err)
	}

	systemPrompt, userTemplate := g.promptsFor(promptTailorResume)
	userPrompt := buildTailorPrompt(userTemplate, string(resumeJSON), string(specJSON), input)

	output, usage, err := executeAIOperation[types.TailorResumeOutput](
		g, ctx, "tailor_resume",
		genai.Text(userPrompt),
		systemPrompt,
		schema.Tailoring,
		attribute.String("input.tone", string(input.Tone)),
		attribute.Bool("input.low_confidence", input.LowConfidence),
		attribute.Int("input.spec_confidence", input.SpecConfidence),
		attribute.Int("input.experience_count", len(input.Resume.Experience)),
	)
	if err != nil {
		return types.TailorResumeOutput{}, usage, err
	}
	output.Resume.Normalize()

	g.logger.Debug("Tailoring completed",
		"tone", input.Tone,
		"experience_count", len(output.Resume.Experience),
		"commentary_length", len(output.Commentary))
	return output, usage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements AIProvider interface. The genai client holds no
// connections of its own in single-shot mode.
func (g *GeminiProvider) Close() error {
	return nil
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

type promptKind int

const (
	promptParseResume promptKind = iota
	promptParseResumePDF
	promptExtractJobSpec
	promptTailorResume
)

// promptsFor returns the system prompt and user template for a call,
// preferring prompts loaded from files, then inline config, then defaults.
func (g *GeminiProvider) promptsFor(kind promptKind) (string, string) {
	loaded := config.GetPromptsForOperation(g.operation)
	custom := g.config.CustomPrompts

	switch kind {
	case promptParseResume:
		return resolvePrompt(loaded.SystemPrompts.ParseResume, custom.SystemPrompts.ParseResume, DefaultSystemPrompts.ParseResume),
			resolvePrompt(loaded.UserPrompts.ParseResume, custom.UserPrompts.ParseResume, DefaultUserPrompts.ParseResume)
	case promptParseResumePDF:
		return resolvePrompt(loaded.SystemPrompts.ParseResumePDF, custom.SystemPrompts.ParseResumePDF, DefaultSystemPrompts.ParseResumePDF),
			resolvePrompt(loaded.UserPrompts.ParseResumePDF, custom.UserPrompts.ParseResumePDF, DefaultUserPrompts.ParseResumePDF)
	case promptExtractJobSpec:
		return resolvePrompt(loaded.SystemPrompts.ExtractJobSpec, custom.SystemPrompts.ExtractJobSpec, DefaultSystemPrompts.ExtractJobSpec),
			resolvePrompt(loaded.UserPrompts.ExtractJobSpec, custom.UserPrompts.ExtractJobSpec, DefaultUserPrompts.ExtractJobSpec)
	case promptTailorResume:
		return resolvePrompt(loaded.SystemPrompts.TailorResume, custom.SystemPrompts.TailorResume, DefaultSystemPrompts.TailorResume),
			resolvePrompt(loaded.UserPrompts.TailorResume, custom.UserPrompts.TailorResume, DefaultUserPrompts.TailorResume)
	default:
		return "", ""
	}
}

// resolvePrompt selects the prompt by priority:
// 1. A prompt loaded from a file.
// 2. A prompt defined directly in the configuration.
// 3. A hardcoded default prompt.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
