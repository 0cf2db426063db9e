package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/session"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a branch at the current HEAD commit",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchCreate,
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches",
	Args:  cobra.NoArgs,
	RunE:  runBranchList,
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a branch ref",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchDelete,
}

func runBranchCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		if refs.BranchExists(s.MuseDir(), name) {
			return fmt.Errorf("branch %s already exists", name)
		}
		tip := ""
		head, err := s.HeadCommit()
		if err != nil {
			return err
		}
		if head != nil {
			tip = head.ID
		}
		if err := refs.WriteBranchTip(s.MuseDir(), name, tip); err != nil {
			return err
		}
		logger.Info("branch created", "name", name, "tip", tip)
		fmt.Printf("%s %s\n", colors.SuccessText("Created branch"), colors.Bold(name))
		return nil
	})
}

func runBranchList(cmd *cobra.Command, args []string) error {
	return withSession(func(s *session.Session, logger *slog.Logger) error {
		branches, err := refs.ListBranches(s.MuseDir())
		if err != nil {
			return err
		}
		current, _ := s.CurrentBranch()
		for _, branch := range branches {
			tip, err := refs.BranchTip(s.MuseDir(), branch)
			if err != nil {
				return err
			}
			marker := " "
			name := branch
			if branch == current {
				marker = "*"
				name = colors.Green(branch)
			}
			if tip == "" {
				fmt.Printf("%s %s %s\n", marker, name, colors.Dim("(no commits)"))
			} else {
				fmt.Printf("%s %s %s\n", marker, name, colors.Dim(commitgraph.ShortID(tip)))
			}
		}
		return nil
	})
}

func runBranchDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		current, err := s.CurrentBranch()
		if err == nil && current == name {
			return fmt.Errorf("cannot delete the current branch %s", name)
		}
		deleted, err := refs.DeleteRef(s.MuseDir(), refs.BranchRef(name))
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Printf("Branch %s does not exist.\n", name)
			return nil
		}
		logger.Info("branch deleted", "name", name)
		fmt.Printf("%s %s\n", colors.SuccessText("Deleted branch"), colors.Bold(name))
		return nil
	})
}
