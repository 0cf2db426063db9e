package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/session"
)

var revParseVerify bool

var revParseCmd = &cobra.Command{
	Use:   "rev-parse <revision>",
	Short: "Resolve a revision expression to a commit id",
	Long: `Resolves expressions of the form <base>[~N], where base is HEAD, a
branch name, a full commit id, or an unambiguous prefix.

By default an expression that names no commit prints nothing and exits
successfully; --verify turns that into an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runRevParse,
}

func init() {
	revParseCmd.Flags().BoolVar(&revParseVerify, "verify", false, "fail when the revision cannot be resolved")
}

func runRevParse(cmd *cobra.Command, args []string) error {
	expr := args[0]
	return withSession(func(s *session.Session, logger *slog.Logger) error {
		res, ok, err := s.Resolve(expr)
		if err != nil {
			return err
		}
		if !ok {
			// Default mode is silent on unresolved expressions.
			if revParseVerify {
				return fmt.Errorf("revision %q does not resolve to a commit", expr)
			}
			return nil
		}
		fmt.Println(res.CommitID)
		return nil
	})
}
