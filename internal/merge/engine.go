package merge

import (
	"errors"
	"fmt"
	"time"

	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/snapshot"
	"github.com/musehq/muse/internal/workspace"
)

// ErrUnresolvedRevision reports a merge source naming no commit.
var ErrUnresolvedRevision = errors.New("revision does not name a commit")

// EngineResult is the outcome of a merge operation.
type EngineResult struct {
	Commit      *commitgraph.Commit // nil for noop and conflicts; the new tip on fast-forward
	SnapshotID  string
	Manifest    snapshot.Manifest
	Conflicts   []string
	Noop        bool
	FastForward bool
}

// Engine merges another branch or commit into the current branch head.
type Engine struct {
	S *session.Session
}

// NewEngine creates a merge engine.
func NewEngine(s *session.Session) *Engine {
	return &Engine{S: s}
}

// Start merges the named revision into HEAD. The merge base is the first
// common ancestor of the two commits; histories that already contain the
// source report a noop, and a head that is an ancestor of the source
// fast-forwards the ref instead of creating a commit.
func (e *Engine) Start(rev string) (*EngineResult, error) {
	museDir := e.S.MuseDir()
	if err := GuardIdle(museDir); err != nil {
		return nil, err
	}

	branch, err := e.S.CurrentBranch()
	if err != nil {
		return nil, err
	}
	ours, head, err := e.S.HeadManifest()
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, fmt.Errorf("branch %s: %w", branch, session.ErrNoCommits)
	}

	res, ok, err := e.S.Resolve(rev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%q: %w", rev, ErrUnresolvedRevision)
	}
	other, err := commitgraph.Get(e.S.DB, res.CommitID)
	if err != nil {
		return nil, err
	}

	baseCommit, err := commitgraph.MergeBase(e.S.DB, head.ID, other.ID)
	if err != nil {
		return nil, err
	}
	if baseCommit != nil && baseCommit.ID == other.ID {
		// Source already reachable from head.
		return &EngineResult{Noop: true, Manifest: ours, SnapshotID: head.SnapshotID}, nil
	}

	theirs, err := e.S.ManifestOf(other)
	if err != nil {
		return nil, err
	}

	if baseCommit != nil && baseCommit.ID == head.ID {
		if err := refs.WriteBranchTip(museDir, branch, other.ID); err != nil {
			return nil, err
		}
		if _, err := workspace.Materialize(e.S.WorkDir(), theirs, e.S.Objects); err != nil {
			return nil, err
		}
		return &EngineResult{FastForward: true, Commit: other, Manifest: theirs, SnapshotID: other.SnapshotID}, nil
	}

	base := make(snapshot.Manifest)
	if baseCommit != nil {
		if base, err = e.S.ManifestOf(baseCommit); err != nil {
			return nil, err
		}
	}

	merged := Merge(base, ours, theirs)

	if len(merged.Conflicts) > 0 {
		st := &State{
			SourceCommits: []string{other.ID},
			HeadCommit:    head.ID,
			ConflictPaths: merged.Conflicts,
		}
		if err := SaveState(museDir, MergeStateFile, st); err != nil {
			return nil, err
		}
		if _, err := workspace.Materialize(e.S.WorkDir(), merged.Manifest, e.S.Objects); err != nil {
			return nil, err
		}
		return &EngineResult{Manifest: merged.Manifest, Conflicts: merged.Conflicts},
			&ConflictError{Paths: merged.Conflicts}
	}

	c, err := e.S.CommitManifest(branch, head.ID, merged.Manifest, mergeMessage(other, branch), e.S.Repo.Author(), time.Now())
	if err != nil {
		return nil, err
	}
	if _, err := workspace.Materialize(e.S.WorkDir(), merged.Manifest, e.S.Objects); err != nil {
		return nil, err
	}
	return &EngineResult{Commit: c, SnapshotID: c.SnapshotID, Manifest: merged.Manifest}, nil
}

// Continue finishes a paused merge once its conflict list is empty.
func (e *Engine) Continue() (*EngineResult, error) {
	museDir := e.S.MuseDir()
	st, err := LoadState(museDir, MergeStateFile)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("merge: %w", ErrNoOperation)
	}
	if len(st.ConflictPaths) > 0 {
		return nil, &ConflictError{Paths: st.ConflictPaths}
	}

	branch, err := e.S.CurrentBranch()
	if err != nil {
		return nil, err
	}
	other, err := commitgraph.Get(e.S.DB, st.SourceCommits[0])
	if err != nil {
		return nil, err
	}

	m, err := snapshot.BuildManifest(e.S.WorkDir(), e.S.Objects)
	if err != nil {
		return nil, err
	}
	c, err := e.S.CommitManifest(branch, st.HeadCommit, m, mergeMessage(other, branch), e.S.Repo.Author(), time.Now())
	if err != nil {
		return nil, err
	}
	if err := ClearState(museDir, MergeStateFile); err != nil {
		return nil, err
	}
	return &EngineResult{Commit: c, SnapshotID: c.SnapshotID, Manifest: m}, nil
}

// Abort rolls a paused merge back to the recorded head commit.
func (e *Engine) Abort() error {
	museDir := e.S.MuseDir()
	st, err := LoadState(museDir, MergeStateFile)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("merge: %w", ErrNoOperation)
	}

	branch, err := e.S.CurrentBranch()
	if err != nil {
		return err
	}
	if err := refs.WriteBranchTip(museDir, branch, st.HeadCommit); err != nil {
		return err
	}

	head, err := commitgraph.Get(e.S.DB, st.HeadCommit)
	if err != nil {
		return err
	}
	m, err := e.S.ManifestOf(head)
	if err != nil {
		return err
	}
	if _, err := workspace.Materialize(e.S.WorkDir(), m, e.S.Objects); err != nil {
		return err
	}
	return ClearState(museDir, MergeStateFile)
}

func mergeMessage(other *commitgraph.Commit, branch string) string {
	source := other.Branch
	if source == "" || source == branch {
		source = commitgraph.ShortID(other.ID)
	} else {
		source = "'" + source + "'"
	}
	return fmt.Sprintf("Merge %s into %s", source, branch)
}
