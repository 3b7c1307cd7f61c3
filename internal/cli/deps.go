package cli

import (
	"context"
	"time"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ai"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/observability"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/pipeline"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
)

// appDeps holds the components a command runs the pipeline with.
type appDeps struct {
	Pipeline      *pipeline.Pipeline
	Flags         pipeline.Flags
	Services      *ai.Services
	Observability *observability.ObservabilityManager
	Recorder      *observability.Recorder
	Store         store.Gateway

	logger *errors.Logger
}

type depsOptions struct {
	// Store opens the persistence gateway
	Store bool
	// Observe starts tracing and metrics exporters
	Observe bool
}

// buildDeps wires AI services, the pipeline and, on request, the store and
// observability from cfg.
func buildDeps(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts depsOptions) (*appDeps, error) {
	d := &appDeps{Flags: pipeline.FlagsFromConfig(cfg.Pipeline), logger: logger}

	if opts.Observe {
		om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg, logger)
		if err != nil {
			return nil, err
		}
		d.Observability = om
	}
	d.Recorder = observability.NewRecorder(d.Observability)

	services, err := ai.NewServices(cfg, logger)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Services = services

	popts := pipeline.Options{
		Loader: pipeline.NewJobSpecLoader(ingest.NewFetcher(nil, cfg.Pipeline.JobSpecFetchTimeout,
			ingest.Options{MaxFileSize: cfg.App.MaxFileSize})),
		Recorder: d.Recorder,
		Logger:   logger,
	}
	if services.Parse != nil {
		popts.Parser = services.Parse.Provider
	}
	if services.JobSpec != nil {
		popts.Extractor = services.JobSpec.Provider
	}
	if services.Tailor != nil {
		popts.Tailorer = services.Tailor.Provider
	}
	d.Pipeline = pipeline.New(popts)

	if opts.Store {
		gw, err := store.Open(ctx, cfg.Store, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Store = gw
	}
	return d, nil
}

// Close releases everything buildDeps opened.
func (d *appDeps) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.logger.LogError(err, "Failed to close store")
		}
	}
	if d.Services != nil {
		if err := d.Services.Close(); err != nil {
			d.logger.LogError(err, "Failed to close AI services")
		}
	}
	if d.Observability != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Observability.Shutdown(ctx); err != nil {
			d.logger.LogError(err, "Failed to shutdown observability")
		}
	}
}
