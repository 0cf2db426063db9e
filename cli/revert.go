package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/revert"
	"github.com/musehq/muse/internal/session"
)

var (
	revertTrack    string
	revertSection  string
	revertNoCommit bool
)

var revertCmd = &cobra.Command{
	Use:   "revert <revision>",
	Short: "Undo a commit by restoring its parent's state",
	Long: `Creates a commit whose tree equals the target commit's parent's
tree. With --track or --section only paths under tracks/<name>/ or
sections/<name>/ are restored; the rest of the arrangement keeps its
current state.`,
	Args: cobra.ExactArgs(1),
	RunE: runRevert,
}

func init() {
	revertCmd.Flags().StringVar(&revertTrack, "track", "", "limit the revert to one track")
	revertCmd.Flags().StringVar(&revertSection, "section", "", "limit the revert to one section")
	revertCmd.Flags().BoolVar(&revertNoCommit, "no-commit", false, "apply to the working tree without committing")
}

func runRevert(cmd *cobra.Command, args []string) error {
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		engine := revert.New(s)
		result, err := engine.Revert(args[0], revert.Options{
			Track:    revertTrack,
			Section:  revertSection,
			NoCommit: revertNoCommit,
		})
		if err != nil {
			return describeConflicts(err)
		}

		if len(result.ScopedPaths) > 0 {
			fmt.Printf("Scope covered %d path(s).\n", len(result.ScopedPaths))
		}
		switch {
		case result.Noop:
			fmt.Println("Nothing to revert: result matches HEAD.")
		case result.Commit == nil:
			for _, path := range result.Deleted {
				fmt.Printf("  %s %s\n", colors.Red("deleted"), path)
			}
			fmt.Printf("Applied revert to the working tree %s\n", colors.Dim("(no commit created)"))
		default:
			logger.Info("revert", "commit", result.Commit.ID, "snapshot", result.SnapshotID)
			fmt.Printf("%s %s\n", colors.SuccessText("Reverted as"), colors.Bold(commitgraph.ShortID(result.Commit.ID)))
		}
		return nil
	})
}
