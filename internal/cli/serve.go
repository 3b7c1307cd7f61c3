package cli

import (
	"github.com/spf13/cobra"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/server"
)

// multipartOverhead is added to the file size limit for form fields and
// boundaries.
const multipartOverhead = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the parsing pipeline and saved resumes.

Available endpoints:
- POST /parse: Parse a resume upload (multipart field "file", optional ai=false)
- POST /jobspec: Extract a job specification from {"text": ...}
- POST /tailor: Tailor a parsed resume to the job in additionalContext
- POST /resumes: Parse, optionally tailor, and save a resume
- GET /resumes/{slug}, PUT /resumes/{id}, DELETE /resumes/{id}
- GET /health: Health check including AI model availability
- GET /stats: Server statistics and rate limiting info`,
	RunE: runServe,
}

var serveFlags struct {
	Port string
	Host string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.Port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if serveFlags.Port != "" {
		cfg.Server.Port = serveFlags.Port
	}
	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}

	deps, err := buildDeps(cmd.Context(), cfg, logger, depsOptions{Store: true, Observe: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize + multipartOverhead,
		RateLimit:      &cfg.Server.RateLimit,
	}
	srv := server.NewServer(cfg, serverCfg, server.Deps{
		Pipeline:      deps.Pipeline,
		Flags:         deps.Flags,
		Store:         deps.Store,
		Recorder:      deps.Recorder,
		Observability: deps.Observability,
		AIServices:    deps.Services,
	}, logger)
	return srv.Start(cmd.Context())
}
