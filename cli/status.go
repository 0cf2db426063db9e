package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/cas"
	"github.com/musehq/muse/internal/colors"
	"github.com/musehq/muse/internal/merge"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/snapshot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show working tree changes against HEAD",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withSession(func(s *session.Session, logger *slog.Logger) error {
		head, err := refs.ReadHead(s.MuseDir())
		if err != nil {
			return err
		}
		switch head.Kind {
		case refs.HeadSymbolic:
			fmt.Printf("On branch %s\n", colors.Bold(head.Branch))
		case refs.HeadDetached:
			fmt.Printf("HEAD detached at %s\n", colors.Yellow(head.CommitID[:8]))
		default:
			fmt.Println("Empty repository.")
			return nil
		}

		if file, err := merge.InProgress(s.MuseDir()); err != nil {
			return err
		} else if file != "" {
			st, err := merge.LoadState(s.MuseDir(), file)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d conflicting paths remaining)\n",
				colors.WarningText("Operation in progress: "+file), len(st.ConflictPaths))
			for _, path := range st.ConflictPaths {
				fmt.Printf("  %s %s\n", colors.Red("!"), path)
			}
		}

		headManifest, _, err := s.HeadManifest()
		if err != nil {
			return err
		}
		// Hash the working tree without writing blobs: status never
		// mutates the object store.
		working, err := snapshot.BuildManifest(s.WorkDir(), cas.NewMemoryCAS())
		if err != nil && !errors.Is(err, snapshot.ErrEmptyWorkingTree) {
			return err
		}
		if working == nil {
			working = make(snapshot.Manifest)
		}

		clean := true
		for _, path := range working.Paths() {
			if headHash, ok := headManifest[path]; !ok {
				fmt.Printf("  %s %s\n", colors.Green("A"), path)
				clean = false
			} else if headHash != working[path] {
				fmt.Printf("  %s %s\n", colors.Yellow("M"), path)
				clean = false
			}
		}
		for _, path := range headManifest.Paths() {
			if _, ok := working[path]; !ok {
				fmt.Printf("  %s %s\n", colors.Red("D"), path)
				clean = false
			}
		}
		if clean {
			fmt.Println("Working tree clean.")
		}
		return nil
	})
}
