package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/common"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
)

var parseCmd = &cobra.Command{
	Use:   "parse [resume-file]",
	Short: "Parse a resume into structured data",
	Long: `Parse a resume file (PDF, plain text or markdown) into structured data.
Text resumes are parsed by the AI model and fall back to the regex parser when
the model is unavailable. PDFs need AI parsing to be enabled.

Use --save to store the result and print the saved record with its slug.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutput(&parseConfig.CommandConfig),
	RunE:    runParse,
}

var parseConfig struct {
	common.CommandConfig
	NoAI   bool
	Save   bool
	Title  string
	Public bool
}

func init() {
	addOutputFlags(parseCmd, &parseConfig.CommandConfig)
	parseCmd.Flags().BoolVar(&parseConfig.NoAI, "no-ai", false, "Use the regex parser only")
	parseCmd.Flags().BoolVar(&parseConfig.Save, "save", false, "Save the parsed resume")
	parseCmd.Flags().StringVar(&parseConfig.Title, "title", "", "Title of the saved resume (default: the candidate's name)")
	parseCmd.Flags().BoolVar(&parseConfig.Public, "public", false, "Make the saved resume public")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	deps, err := buildDeps(cmd.Context(), cfg, logger, depsOptions{Store: parseConfig.Save})
	if err != nil {
		return err
	}
	defer deps.Close()

	flags := deps.Flags
	if parseConfig.NoAI {
		flags.AIParsingEnabled = false
	}

	logDetails := func(doc ingest.Document, cc common.CommandConfig) {
		logger.Info("Starting resume parsing",
			"file", doc.Filename,
			"mime_type", doc.MimeType,
			"ai_parsing", flags.AIParsingEnabled,
			"output_format", cc.OutputFormat)
	}

	if !parseConfig.Save {
		return common.RunCommand(cmd.Context(), logger, parseConfig.CommandConfig, args,
			common.LoadSingleDocument,
			func(ctx context.Context, doc ingest.Document) (any, error) {
				return deps.Pipeline.Parse(ctx, doc, flags)
			},
			logDetails)
	}

	return common.RunCommand(cmd.Context(), logger, parseConfig.CommandConfig, args,
		common.LoadSingleDocument,
		func(ctx context.Context, doc ingest.Document) (any, error) {
			res, err := deps.Pipeline.Parse(ctx, doc, flags)
			if err != nil {
				return nil, err
			}
			rec := store.NewRecord(doc, parseConfig.Title, res.Resume, res.Method, res.Confidence)
			rec.IsPublic = parseConfig.Public
			saved, err := store.Save(ctx, deps.Store, rec)
			deps.Recorder.RecordSave(ctx, err)
			if err != nil {
				return nil, err
			}
			logger.Info("Resume saved", "id", saved.ID, "slug", saved.Slug)
			return saved, nil
		},
		logDetails)
}
