// Package cli implements the muse command-line shell. Commands resolve
// the repository, drive the engines under internal/, and present plain
// result records; all VCS logic lives in the engine packages.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/repo"
)

var rootCmd = &cobra.Command{
	Use:   "muse",
	Short: "Muse is a version control system for music production projects",
	Long: `Muse tracks the evolution of a music project: commits snapshot the
muse-work tree of MIDI and track files, branches hold divergent
arrangements, and cherry-pick, revert, reset, and worktrees move
changes between them.`,
	SilenceUsage: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new muse repository",
	Long:  "Creates the .muse metadata directory, the main branch, and the muse-work working tree area in the current directory.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)

	// Snapshot and history commands
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(revParseCmd)

	// Branch management
	rootCmd.AddCommand(branchCmd)
	branchCmd.AddCommand(branchCreateCmd, branchListCmd, branchDeleteCmd)

	// History editing
	rootCmd.AddCommand(cherryPickCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(resolveCmd)

	// Linked worktrees
	rootCmd.AddCommand(worktreeCmd)
	worktreeCmd.AddCommand(worktreeAddCmd, worktreeRemoveCmd, worktreeListCmd, worktreePruneCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	r, err := repo.Init(workDir)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", colors.SuccessText("Initialized muse repository"), colors.Dim(r.Root))
	fmt.Printf("Repository id: %s\n", r.Desc.RepoID)
	fmt.Printf("Place project files under %s and run 'muse commit' to record them.\n", colors.Bold(repo.WorkDirName+"/"))
	return nil
}
