package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/cherrypick"
	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/merge"
	"github.com/musehq/muse/internal/session"
)

var (
	cherryPickNoCommit bool
	cherryPickContinue bool
	cherryPickAbort    bool
)

var cherryPickCmd = &cobra.Command{
	Use:   "cherry-pick <revision>",
	Short: "Apply one commit's changes onto the current branch",
	Long: `Transplants the named commit's change set onto HEAD. Conflicting
paths pause the operation; resolve them with 'muse resolve', then run
--continue, or roll back with --abort.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCherryPick,
}

func init() {
	cherryPickCmd.Flags().BoolVar(&cherryPickNoCommit, "no-commit", false, "compute the result without committing or moving the branch")
	cherryPickCmd.Flags().BoolVar(&cherryPickContinue, "continue", false, "finish a cherry-pick paused on conflicts")
	cherryPickCmd.Flags().BoolVar(&cherryPickAbort, "abort", false, "abandon a paused cherry-pick and restore the branch")
}

func runCherryPick(cmd *cobra.Command, args []string) error {
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		engine := cherrypick.New(s)

		switch {
		case cherryPickAbort:
			if err := engine.Abort(); err != nil {
				return err
			}
			fmt.Println(colors.SuccessText("Cherry-pick aborted; branch restored."))
			return nil

		case cherryPickContinue:
			result, err := engine.Continue()
			if err != nil {
				return describeConflicts(err)
			}
			logger.Info("cherry-pick continued", "commit", result.Commit.ID)
			fmt.Printf("%s %s\n", colors.SuccessText("Cherry-pick finished:"), colors.Bold(commitgraph.ShortID(result.Commit.ID)))
			return nil

		default:
			if len(args) != 1 {
				return fmt.Errorf("cherry-pick requires a revision (or --continue/--abort)")
			}
			result, err := engine.Start(args[0], cherrypick.Options{NoCommit: cherryPickNoCommit})
			if err != nil {
				return describeConflicts(err)
			}
			switch {
			case result.Noop:
				fmt.Println("Nothing to do: commit is already HEAD.")
			case result.Commit == nil:
				fmt.Printf("Computed result snapshot %s (no commit created).\n", colors.Bold(commitgraph.ShortID(result.SnapshotID)))
			default:
				logger.Info("cherry-pick", "commit", result.Commit.ID, "snapshot", result.SnapshotID)
				fmt.Printf("%s %s\n", colors.SuccessText("Cherry-picked as"), colors.Bold(commitgraph.ShortID(result.Commit.ID)))
			}
			return nil
		}
	})
}

// describeConflicts expands a ConflictError into per-path lines; other
// errors pass through.
func describeConflicts(err error) error {
	var conflictErr *merge.ConflictError
	if errors.As(err, &conflictErr) {
		fmt.Println(colors.WarningText("Conflicts detected:"))
		for _, path := range conflictErr.Paths {
			fmt.Printf("  %s %s\n", colors.Red("!"), path)
		}
		fmt.Println(colors.Dim("Resolve each path with 'muse resolve <path> --ours|--theirs', then run --continue, or --abort."))
	}
	return err
}
