package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/common"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Manage saved resumes",
}

var resumeGetCmd = &cobra.Command{
	Use:     "get [slug]",
	Short:   "Print a saved resume by slug",
	Long:    "Print a saved resume by slug. Every lookup counts as a view.",
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutput(&resumeConfig),
	RunE:    runResumeGet,
}

var resumeDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved resume by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runResumeDelete,
}

var resumeConfig common.CommandConfig

func init() {
	addOutputFlags(resumeGetCmd, &resumeConfig)
	resumeCmd.AddCommand(resumeGetCmd)
	resumeCmd.AddCommand(resumeDeleteCmd)
}

// openStore opens only the persistence gateway.
func openStore(cmd *cobra.Command) (store.Gateway, error) {
	cfg := getConfigFromContext(cmd.Context())
	return store.Open(cmd.Context(), cfg.Store, getLoggerFromContext(cmd.Context()))
}

func runResumeGet(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	gw, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()

	return common.RunCommand(cmd.Context(), logger, resumeConfig, args,
		func(_ *common.FileProcessor, args []string) (string, error) { return args[0], nil },
		func(ctx context.Context, slug string) (store.Record, error) {
			rec, err := gw.GetResumeBySlug(ctx, slug)
			if err != nil {
				return store.Record{}, err
			}
			if err := gw.IncrementViewCount(ctx, rec.ID); err != nil {
				logger.LogError(err, "Failed to count resume view", "id", rec.ID)
			} else {
				rec.ViewCount++
			}
			return rec, nil
		},
		nil)
}

func runResumeDelete(cmd *cobra.Command, args []string) error {
	gw, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()

	if err := gw.DeleteResume(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted resume %s\n", args[0])
	return err
}
