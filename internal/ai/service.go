package ai

import (
	"context"
	"fmt"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

// Service handles AI operations for one configured operation
type Service struct {
	Provider  AIProvider // Exported for access from server package
	config    *config.OperationAIConfig
	operation string
	logger    *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific operation
func NewService(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*Service, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model)

	var provider AIProvider
	var err error

	switch cfg.Provider {
	case "gemini", "":
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}

	return &Service{
		Provider:  provider,
		config:    cfg,
		operation: operationType,
		logger:    logger,
	}, nil
}

// Operation returns the operation name the service was built for
func (s *Service) Operation() string {
	return s.operation
}

// Model returns the configured model name
func (s *Service) Model() string {
	return s.config.Model
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases the provider
func (s *Service) Close() error {
	return s.Provider.Close()
}

// Services holds one service per AI operation. Entries are nil when the
// matching feature is disabled.
type Services struct {
	Parse   *Service
	JobSpec *Service
	Tailor  *Service
}

// NewServices builds the services the enabled pipeline features need.
func NewServices(cfg *config.Config, logger *errors.Logger) (*Services, error) {
	s := &Services{}

	if cfg.Pipeline.AIParsingEnabled {
		parseCfg := cfg.GetParseConfig()
		svc, err := NewService(&parseCfg, config.OperationParse, logger)
		if err != nil {
			return nil, err
		}
		s.Parse = svc
	}

	if cfg.Pipeline.JobTailoringEnabled {
		jobSpecCfg := cfg.GetJobSpecConfig()
		svc, err := NewService(&jobSpecCfg, config.OperationJobSpec, logger)
		if err != nil {
			return nil, err
		}
		s.JobSpec = svc

		tailorCfg := cfg.GetTailorConfig()
		svc, err = NewService(&tailorCfg, config.OperationTailor, logger)
		if err != nil {
			return nil, err
		}
		s.Tailor = svc
	}

	return s, nil
}

// All returns the non-nil services
func (s *Services) All() []*Service {
	var out []*Service
	for _, svc := range []*Service{s.Parse, s.JobSpec, s.Tailor} {
		if svc != nil {
			out = append(out, svc)
		}
	}
	return out
}

// Close closes every service
func (s *Services) Close() error {
	var firstErr error
	for _, svc := range s.All() {
		if err := svc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
