package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/session"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show commit history of the current branch",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "limit the number of commits shown (0 = all)")
}

func runLog(cmd *cobra.Command, args []string) error {
	return withSession(func(s *session.Session, logger *slog.Logger) error {
		head, err := s.HeadCommit()
		if err != nil {
			return err
		}
		if head == nil {
			fmt.Println("No commits yet.")
			return nil
		}

		commits, err := commitgraph.Log(s.DB, head.ID, logLimit)
		if err != nil {
			return err
		}

		for _, c := range commits {
			fmt.Printf("%s %s\n", colors.Yellow(commitgraph.ShortID(c.ID)), firstLine(c.Message))
			fmt.Printf("  %s %s\n",
				colors.Dim(c.CommittedAt.Local().Format("2006-01-02 15:04:05")),
				colors.Dim(c.Author))
		}
		return nil
	})
}

func firstLine(message string) string {
	for i := 0; i < len(message); i++ {
		if message[i] == '\n' {
			return message[:i]
		}
	}
	return message
}
