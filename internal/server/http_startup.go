package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Handler returns the routed handler wrapped in HTTP instrumentation.
func (s *Server) Handler() http.Handler {
	return s.Observability.HTTPMiddleware()(s.setupRoutes())
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	stopWatchers, err := s.startWatchers()
	if err != nil {
		return err
	}
	defer stopWatchers()

	s.displayServerInfo()

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

// startWatchers starts the prompt file and API key watchers that are
// configured and returns a function stopping them.
func (s *Server) startWatchers() (func(), error) {
	var stops []func() error

	if s.AppConfig != nil && s.AppConfig.App.WatchPrompts {
		pw := config.NewPromptWatcher(s.AppConfig, 0, func(err error) {
			if err != nil {
				s.Logger.LogError(err, "Prompt reload failed, keeping previous prompts")
				return
			}
			s.Logger.Info("Prompts reloaded")
		}, s.Logger)
		if err := pw.Start(); err != nil {
			return nil, fmt.Errorf("failed to start prompt watcher: %w", err)
		}
		stops = append(stops, pw.Stop)
	}

	kw, err := s.newKeyWatcher()
	if err == nil && kw != nil {
		if err = kw.Start(); err == nil {
			stops = append(stops, kw.Stop)
		}
	}
	if err != nil {
		for _, stop := range stops {
			_ = stop()
		}
		return nil, err
	}

	return func() {
		for _, stop := range stops {
			if err := stop(); err != nil {
				s.Logger.LogError(err, "Failed to stop watcher")
			}
		}
	}, nil
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}
