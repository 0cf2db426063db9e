package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/snapshot"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:   "commit -m <message>",
	Short: "Record a snapshot of the working tree",
	Long:  "Hashes every file under muse-work/, stores the snapshot, and appends a commit to the current branch.",
	Args:  cobra.NoArgs,
	RunE:  runCommit,
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	commitCmd.MarkFlagRequired("message")
}

func runCommit(cmd *cobra.Command, args []string) error {
	return withLockedSession(func(s *session.Session, logger *slog.Logger) error {
		c, err := s.CommitWorkingTree(commitMessage)
		if err != nil {
			if errors.Is(err, snapshot.ErrEmptyWorkingTree) {
				return fmt.Errorf("nothing to commit: %w", err)
			}
			return err
		}

		logger.Info("commit", "id", c.ID, "branch", c.Branch, "snapshot", c.SnapshotID)
		fmt.Printf("%s %s %s\n",
			colors.SuccessText("Committed"),
			colors.Bold(commitgraph.ShortID(c.ID)),
			colors.Dim(fmt.Sprintf("on %s", c.Branch)))
		return nil
	})
}
