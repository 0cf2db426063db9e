package merge

import (
	"errors"
	"fmt"

	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/workspace"
)

// Side selects which version of a conflicted path to keep.
type Side int

const (
	Ours Side = iota
	Theirs
)

// ErrNotConflicted reports a resolve target absent from the paused
// operation's conflict list.
var ErrNotConflicted = errors.New("path is not conflicted")

// ResolvePath settles one conflicted path in the paused operation:
// the chosen side's content is written to (or deleted from) the working
// directory and the path leaves the persisted conflict list. Once the
// list is empty the operation can continue.
func ResolvePath(s *session.Session, path string, side Side) (remaining []string, err error) {
	museDir := s.MuseDir()
	file, err := InProgress(museDir)
	if err != nil {
		return nil, err
	}
	if file == "" {
		return nil, ErrNoOperation
	}
	st, err := LoadState(museDir, file)
	if err != nil {
		return nil, err
	}

	if !st.Resolved(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotConflicted)
	}

	var sourceID string
	switch side {
	case Ours:
		sourceID = st.HeadCommit
	case Theirs:
		sourceID = st.SourceCommits[0]
	default:
		return nil, fmt.Errorf("unknown resolution side %d", side)
	}

	c, err := commitgraph.Get(s.DB, sourceID)
	if err != nil {
		return nil, err
	}
	m, err := s.ManifestOf(c)
	if err != nil {
		return nil, err
	}

	if hash, exists := m[path]; exists {
		if err := workspace.WriteFile(s.WorkDir(), path, hash, s.Objects); err != nil {
			return nil, err
		}
	} else {
		if err := workspace.RemoveFile(s.WorkDir(), path); err != nil {
			return nil, err
		}
	}

	if err := SaveState(museDir, file, st); err != nil {
		return nil, err
	}
	return st.ConflictPaths, nil
}
