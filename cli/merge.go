package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/merge"
	"github.com/musehq/muse/internal/session"
)

var (
	mergeContinue bool
	mergeAbort    bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <revision>",
	Short: "Merge another branch or commit into the current branch",
	Long: `Three-way merge of the named revision into HEAD, using their common
ancestor as base. Non-conflicting changes combine; conflicting paths
pause the merge for 'muse resolve' followed by --continue or --abort.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeContinue, "continue", false, "finish a merge paused on conflicts")
	mergeCmd.Flags().BoolVar(&mergeAbort, "abort", false, "abandon a paused merge and restore the branch")
}

func runMerge(cmd *cobra.Command, args []string) error {
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		engine := merge.NewEngine(s)

		switch {
		case mergeAbort:
			if err := engine.Abort(); err != nil {
				return err
			}
			fmt.Println(colors.SuccessText("Merge aborted; branch restored."))
			return nil

		case mergeContinue:
			result, err := engine.Continue()
			if err != nil {
				return describeConflicts(err)
			}
			logger.Info("merge continued", "commit", result.Commit.ID)
			fmt.Printf("%s %s\n", colors.SuccessText("Merge finished:"), colors.Bold(commitgraph.ShortID(result.Commit.ID)))
			return nil

		default:
			if len(args) != 1 {
				return fmt.Errorf("merge requires a revision (or --continue/--abort)")
			}
			result, err := engine.Start(args[0])
			if err != nil {
				return describeConflicts(err)
			}
			switch {
			case result.Noop:
				fmt.Println("Already up to date.")
			case result.FastForward:
				fmt.Printf("%s to %s\n", colors.SuccessText("Fast-forwarded"), colors.Bold(commitgraph.ShortID(result.Commit.ID)))
			default:
				logger.Info("merge", "commit", result.Commit.ID, "snapshot", result.SnapshotID)
				fmt.Printf("%s %s\n", colors.SuccessText("Merged as"), colors.Bold(commitgraph.ShortID(result.Commit.ID)))
			}
			return nil
		}
	})
}
