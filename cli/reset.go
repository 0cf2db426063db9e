package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/reset"
	"github.com/musehq/muse/internal/session"
)

var (
	resetSoft  bool
	resetMixed bool
	resetHard  bool
	resetYes   bool
)

var resetCmd = &cobra.Command{
	Use:   "reset <revision>",
	Short: "Move the current branch to another commit",
	Long: `Moves the current branch pointer to the resolved commit.

Modes:
  --soft   move the branch pointer only (default)
  --mixed  same as --soft (muse has no staging area)
  --hard   also rewrite muse-work/ to match the target snapshot

A hard reset discards uncommitted changes and requires --yes.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetSoft, "soft", false, "move the branch pointer only")
	resetCmd.Flags().BoolVar(&resetMixed, "mixed", false, "same as --soft")
	resetCmd.Flags().BoolVar(&resetHard, "hard", false, "DANGER: rewrite the working tree to the target snapshot")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm a hard reset")
	resetCmd.MarkFlagsMutuallyExclusive("soft", "mixed", "hard")
}

func runReset(cmd *cobra.Command, args []string) error {
	mode := reset.Soft
	switch {
	case resetMixed:
		mode = reset.Mixed
	case resetHard:
		mode = reset.Hard
	}

	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		engine := reset.New(s)
		result, err := engine.Reset(args[0], reset.Options{Mode: mode, Confirm: resetYes})
		if err != nil {
			return err
		}

		logger.Info("reset", "mode", mode.String(), "branch", result.Branch, "target", result.Target.ID)
		fmt.Printf("%s %s %s %s\n",
			colors.SuccessText("Reset"),
			colors.Bold(result.Branch),
			colors.Dim("("+mode.String()+")"),
			colors.Yellow(commitgraph.ShortID(result.Target.ID)))
		if mode == reset.Hard {
			fmt.Printf("  %d file(s) restored, %d file(s) deleted\n", result.Restored, result.Deleted)
		}
		return nil
	})
}
