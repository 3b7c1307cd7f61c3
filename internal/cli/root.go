package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/common"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "cvparser",
	Short: "Parse resumes into structured data and tailor them to job descriptions",
	Long: `cvparser turns resume uploads (PDF, text or markdown) into structured
resume data using an AI model with a regex fallback. Given a job description
it extracts the role's requirements and rewrites the resume towards them
without changing the facts. Parsed resumes can be saved and shared by slug.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// addOutputFlags registers --output and --format on cmd.
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutput applies config defaults to cc; used as PreRunE.
func resolveOutput(cc *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(cc.OutputFormat, cfg.App)
		if err != nil {
			return err
		}
		cc.OutputFormat = format
		cc.Ingest.MaxFileSize = cfg.App.MaxFileSize
		return nil
	}
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(jobspecCmd)
	rootCmd.AddCommand(tailorCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
