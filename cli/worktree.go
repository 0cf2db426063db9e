package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/worktree"
)

var worktreeCmd = &cobra.Command{
	Use:   "worktree",
	Short: "Manage linked working directories",
	Long: `Linked worktrees share one repository's objects and refs while each
holds its own muse-work area, so several arrangements can be open at
once. A branch can be checked out in at most one worktree.`,
}

var worktreeAddCmd = &cobra.Command{
	Use:   "add <path> <branch>",
	Short: "Create a linked worktree for a branch",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorktreeAdd,
}

var worktreeRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a linked worktree and its registration",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorktreeRemove,
}

var worktreeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the main and linked worktrees",
	Args:  cobra.NoArgs,
	RunE:  runWorktreeList,
}

var worktreePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop registrations whose directories are gone",
	Args:  cobra.NoArgs,
	RunE:  runWorktreePrune,
}

func runWorktreeAdd(cmd *cobra.Command, args []string) error {
	linkPath, branch := args[0], args[1]
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		reg, err := worktree.Add(s.Repo, linkPath, branch)
		if err != nil {
			return err
		}
		logger.Info("worktree added", "path", reg.Path, "branch", reg.Branch)
		fmt.Printf("%s %s %s\n",
			colors.SuccessText("Added worktree"),
			colors.Bold(reg.Path),
			colors.Dim("on "+reg.Branch))
		return nil
	})
}

func runWorktreeRemove(cmd *cobra.Command, args []string) error {
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		if err := worktree.Remove(s.Repo, args[0]); err != nil {
			return err
		}
		logger.Info("worktree removed", "path", args[0])
		fmt.Printf("%s %s\n", colors.SuccessText("Removed worktree"), colors.Bold(args[0]))
		return nil
	})
}

func runWorktreeList(cmd *cobra.Command, args []string) error {
	return withSession(func(s *session.Session, logger *slog.Logger) error {
		entries, err := worktree.List(s.Repo)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			commit := colors.Dim("(no commits)")
			if entry.CommitID != "" {
				commit = colors.Yellow(commitgraph.ShortID(entry.CommitID))
			}
			name := entry.Path
			if entry.Main {
				name = entry.Path + " " + colors.Dim("(main)")
			}
			fmt.Printf("%s  %s  %s\n", name, colors.Bold(entry.Branch), commit)
		}
		return nil
	})
}

func runWorktreePrune(cmd *cobra.Command, args []string) error {
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		pruned, err := worktree.Prune(s.Repo)
		if err != nil {
			return err
		}
		if len(pruned) == 0 {
			fmt.Println("Nothing to prune.")
			return nil
		}
		for _, path := range pruned {
			fmt.Printf("%s %s\n", colors.SuccessText("Pruned"), path)
		}
		logger.Info("worktrees pruned", "count", len(pruned))
		return nil
	})
}
