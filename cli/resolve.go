package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/merge"
	"github.com/musehq/muse/internal/session"
)

var (
	resolveOurs   bool
	resolveTheirs bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve one conflicted path in a paused operation",
	Long: `Settles a conflicted path from an in-progress merge or cherry-pick by
keeping the current branch's version (--ours) or the incoming commit's
version (--theirs). Once every path is resolved, continue the paused
operation with its --continue flag.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveOurs, "ours", false, "keep the current branch's version")
	resolveCmd.Flags().BoolVar(&resolveTheirs, "theirs", false, "take the incoming commit's version")
	resolveCmd.MarkFlagsOneRequired("ours", "theirs")
	resolveCmd.MarkFlagsMutuallyExclusive("ours", "theirs")
}

func runResolve(cmd *cobra.Command, args []string) error {
	side := merge.Ours
	if resolveTheirs {
		side = merge.Theirs
	}

	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		remaining, err := merge.ResolvePath(s, args[0], side)
		if err != nil {
			return err
		}

		logger.Info("resolved", "path", args[0], "remaining", len(remaining))
		fmt.Printf("%s %s\n", colors.SuccessText("Resolved"), args[0])
		if len(remaining) == 0 {
			fmt.Println(colors.Dim("All conflicts resolved; run the paused operation with --continue."))
		} else {
			fmt.Printf("%d conflicting path(s) remaining.\n", len(remaining))
		}
		return nil
	})
}
