package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/common"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/pipeline"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [resume-file] [job-description-file]",
	Short: "Parse a resume and tailor it for a specific job description",
	Long: `Parse your resume and tailor it for a job description using AI.
Parsing and job description extraction run concurrently. Tailoring rewrites
summary, bullet points and skill order in the chosen tone but never changes
titles, companies or dates.

When extraction or tailoring fails the parsed resume is still printed along
with the stage that failed.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := resolveOutput(&tailorConfig.CommandConfig)(cmd, args); err != nil {
			return err
		}
		switch types.Tone(tailorConfig.Tone) {
		case types.ToneFormal, types.ToneNeutral, types.ToneCreative:
			return nil
		}
		return fmt.Errorf("invalid tone %q: use Formal, Neutral or Creative", tailorConfig.Tone)
	},
	RunE: runTailor,
}

var tailorConfig struct {
	common.CommandConfig
	Tone   string
	Extra  string
	Save   bool
	Title  string
	Public bool
}

// tailorInput is what the tailor command loads from its two arguments.
type tailorInput struct {
	Request pipeline.Request
	JobText string
}

func init() {
	addOutputFlags(tailorCmd, &tailorConfig.CommandConfig)
	tailorCmd.Flags().StringVar(&tailorConfig.Tone, "tone", string(types.ToneNeutral), "Tone of the tailored resume: Formal, Neutral or Creative")
	tailorCmd.Flags().StringVar(&tailorConfig.Extra, "extra", "", "Extra instructions for the tailoring model")
	tailorCmd.Flags().BoolVar(&tailorConfig.Save, "save", false, "Save the tailored resume")
	tailorCmd.Flags().StringVar(&tailorConfig.Title, "title", "", "Title of the saved resume (default: the candidate's name)")
	tailorCmd.Flags().BoolVar(&tailorConfig.Public, "public", false, "Make the saved resume public")

	_ = tailorCmd.RegisterFlagCompletionFunc("tone", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(types.ToneFormal), string(types.ToneNeutral), string(types.ToneCreative)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runTailor(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	deps, err := buildDeps(cmd.Context(), cfg, logger, depsOptions{Store: tailorConfig.Save})
	if err != nil {
		return err
	}
	defer deps.Close()

	load := func(fp *common.FileProcessor, args []string) (tailorInput, error) {
		doc, err := fp.LoadDocument(args[0])
		if err != nil {
			return tailorInput{}, err
		}
		text, err := fp.LoadJobText(args[1])
		if err != nil {
			return tailorInput{}, err
		}
		return tailorInput{
			JobText: text,
			Request: pipeline.Request{
				Document: doc,
				Flags:    deps.Flags,
				AdditionalContext: &types.UserAdditionalContext{
					JobSpecSource: types.JobSpecSourcePasted,
					JobSpecText:   text,
					Tone:          types.Tone(tailorConfig.Tone),
					ExtraPrompt:   tailorConfig.Extra,
				},
			},
		}, nil
	}

	logDetails := func(in tailorInput, cc common.CommandConfig) {
		logger.Info("Starting resume tailoring",
			"file", in.Request.Document.Filename,
			"job_chars", len(in.JobText),
			"tone", tailorConfig.Tone,
			"output_format", cc.OutputFormat)
	}

	return common.RunCommand(cmd.Context(), logger, tailorConfig.CommandConfig, args, load,
		func(ctx context.Context, in tailorInput) (any, error) {
			res, err := deps.Pipeline.Process(ctx, in.Request)
			if err != nil {
				return nil, err
			}
			if res.FailedStage != "" {
				logger.Warn("Tailoring did not complete",
					"stage", res.FailedStage,
					"error_code", res.StageErrorCode())
			}
			if !tailorConfig.Save {
				return res, nil
			}

			rec := store.NewRecord(in.Request.Document, tailorConfig.Title, res.Resume, res.Method, res.Confidence)
			rec.IsPublic = tailorConfig.Public
			rec.AdditionalContext = in.Request.AdditionalContext
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
