package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/common"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

var jobspecCmd = &cobra.Command{
	Use:   "jobspec [job-description-file]",
	Short: "Extract a structured job specification from a job description",
	Long: `Extract the title, company, skills, responsibilities and qualifications
from a job description (text, markdown, HTML or PDF). The result carries a
confidence score; below 50 the extracted job details are treated as thin.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutput(&jobspecConfig),
	RunE:    runJobSpec,
}

var jobspecConfig common.CommandConfig

func init() {
	addOutputFlags(jobspecCmd, &jobspecConfig)
}

func runJobSpec(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	deps, err := buildDeps(cmd.Context(), cfg, logger, depsOptions{})
	if err != nil {
		return err
	}
	defer deps.Close()

	loadJobText := func(fp *common.FileProcessor, args []string) (string, error) {
		return fp.LoadJobText(args[0])
	}

	return common.RunCommand(cmd.Context(), logger, jobspecConfig, args,
		loadJobText,
		func(ctx context.Context, text string) (types.JobSpecResult, error) {
			return deps.Pipeline.ExtractJobSpec(ctx, text, deps.Flags)
		},
		func(text string, cc common.CommandConfig) {
			logger.Info("Starting job specification extraction",
				"job_chars", len(text),
				"output_format", cc.OutputFormat)
		})
}
