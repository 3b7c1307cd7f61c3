package server

import (
	"sync"
	"time"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ai"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/observability"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/pipeline"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// JobSpecRequest is the body of POST /jobspec
type JobSpecRequest struct {
	Text string `json:"text" validate:"required,max=50000"`
}

// TailorRequest is the body of POST /tailor
type TailorRequest struct {
	Resume            types.ParsedResume           `json:"resume"`
	AdditionalContext *types.UserAdditionalContext `json:"additionalContext"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// SaveResponse is the answer of POST /resumes. Result is always present once
// the pipeline ran; Resume is nil when saving failed.
type SaveResponse struct {
	Result           pipeline.PipelineResult `json:"result"`
	Resume           *store.Record           `json:"resume,omitempty"`
	StageError       *ErrorResponse          `json:"stageError,omitempty"`
	PersistenceError *ErrorResponse          `json:"persistenceError,omitempty"`
}

// APIKeySet is the set of accepted API keys. It can be replaced while
// serving.
type APIKeySet struct {
	mu   sync.RWMutex
	keys map[string]bool
}

// NewAPIKeySet builds a set, skipping empty keys.
func NewAPIKeySet(keys []string) *APIKeySet {
	s := &APIKeySet{}
	s.Replace(keys)
	return s
}

// Replace swaps in a new key list
func (s *APIKeySet) Replace(keys []string) {
	m := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			m[key] = true
		}
	}
	s.mu.Lock()
	s.keys = m
	s.mu.Unlock()
}

// Has reports whether key is accepted
func (s *APIKeySet) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[key]
}

// Len returns the number of keys; zero disables authentication.
func (s *APIKeySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Deps are the components the handlers run on.
type Deps struct {
	Pipeline      *pipeline.Pipeline
	Flags         pipeline.Flags
	Store         store.Gateway
	Recorder      *observability.Recorder
	Observability *observability.ObservabilityManager
	AIServices    *ai.Services
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication
	APIKeys *APIKeySet

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Deps

	Logger    *errors.Logger
	startedAt time.Time
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Deps, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if deps.Recorder == nil {
		deps.Recorder = observability.NewRecorder(deps.Observability)
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		APIKeys:        NewAPIKeySet(cfg.APIKeys),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Deps:           deps,
		Logger:         logger,
		startedAt:      time.Now(),
	}
}
