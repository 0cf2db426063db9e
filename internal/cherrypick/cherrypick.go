// Package cherrypick transplants a single commit's change set onto the
// current branch head.
//
// The engine is a three-state machine: idle, applying cleanly, or
// paused on conflicts. A paused cherry-pick persists its state under
// .muse/CHERRY_PICK_STATE.json and resumes via Continue (once every
// conflicting path has been resolved) or rolls back via Abort. Engines
// return plain result records; presentation belongs to the CLI.
package cherrypick

import (
	"errors"
	"fmt"

	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/merge"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/snapshot"
	"github.com/musehq/muse/internal/workspace"
)

// ErrUnresolvedRevision reports a cherry revision naming no commit.
var ErrUnresolvedRevision = errors.New("revision does not name a commit")

// Options control a cherry-pick run.
type Options struct {
	// NoCommit computes and returns the result without persisting a
	// commit or moving the branch ref.
	NoCommit bool
}

// Result is the outcome of a cherry-pick operation.
type Result struct {
	Commit     *commitgraph.Commit // nil when no commit was created
	SnapshotID string
	Manifest   snapshot.Manifest
	Conflicts  []string
	Noop       bool
}

// Engine applies cherry-picks against one repository session.
type Engine struct {
	S *session.Session
}

// New creates a cherry-pick engine.
func New(s *session.Session) *Engine {
	return &Engine{S: s}
}

// Start applies the named commit's changes onto HEAD. On conflicts the
// merged tree (ours winning) is written to the working directory, state
// is persisted, and a *merge.ConflictError is returned alongside the
// result.
func (e *Engine) Start(rev string, opts Options) (*Result, error) {
	museDir := e.S.MuseDir()
	if err := merge.GuardIdle(museDir); err != nil {
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
	cherry, err := commitgraph.Get(e.S.DB, res.CommitID)
	if err != nil {
		return nil, err
	}

	if cherry.ID == head.ID {
		return &Result{Noop: true, Manifest: ours, SnapshotID: head.SnapshotID}, nil
	}

	base, err := e.S.ParentManifestOf(cherry)
	if err != nil {
		return nil, err
	}
	theirs, err := e.S.ManifestOf(cherry)
	if err != nil {
		return nil, err
	}

	applied := merge.ApplyChange(base, ours, theirs)

	if len(applied.Conflicts) > 0 {
		st := &merge.State{
			SourceCommits: []string{cherry.ID},
			HeadCommit:    head.ID,
			ConflictPaths: applied.Conflicts,
		}
		if err := merge.SaveState(museDir, merge.CherryPickStateFile, st); err != nil {
			return nil, err
		}
		// Leave the merged tree (ours winning on conflicts) in the
		// working directory for the resolve step to edit.
		if _, err := workspace.Materialize(e.S.WorkDir(), applied.Manifest, e.S.Objects); err != nil {
			return nil, err
		}
		return &Result{Manifest: applied.Manifest, Conflicts: applied.Conflicts},
			&merge.ConflictError{Paths: applied.Conflicts}
	}

	message := pickMessage(cherry)
	if opts.NoCommit {
		return &Result{
			Manifest:   applied.Manifest,
			SnapshotID: snapshot.ComputeID(applied.Manifest),
		}, nil
	}

	// Reuse the cherry's timestamp so identical inputs always derive the
	// same commit id.
	c, err := e.S.CommitManifest(branch, head.ID, applied.Manifest, message, e.S.Repo.Author(), cherry.CommittedAt)
	if err != nil {
		return nil, err
	}
	if _, err := workspace.Materialize(e.S.WorkDir(), applied.Manifest, e.S.Objects); err != nil {
		return nil, err
	}
	return &Result{Commit: c, SnapshotID: c.SnapshotID, Manifest: applied.Manifest}, nil
}

// Continue finishes a paused cherry-pick once its conflict list is
// empty, committing the resolved working tree onto the recorded head.
func (e *Engine) Continue() (*Result, error) {
	museDir := e.S.MuseDir()
	st, err := merge.LoadState(museDir, merge.CherryPickStateFile)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("cherry-pick: %w", merge.ErrNoOperation)
	}
	if len(st.ConflictPaths) > 0 {
		return nil, &merge.ConflictError{Paths: st.ConflictPaths}
	}

	branch, err := e.S.CurrentBranch()
	if err != nil {
		return nil, err
	}
	cherry, err := commitgraph.Get(e.S.DB, st.SourceCommits[0])
	if err != nil {
		return nil, err
	}

	m, err := snapshot.BuildManifest(e.S.WorkDir(), e.S.Objects)
	if err != nil {
		return nil, err
	}

	c, err := e.S.CommitManifest(branch, st.HeadCommit, m, pickMessage(cherry), e.S.Repo.Author(), cherry.CommittedAt)
	if err != nil {
		return nil, err
	}
	if err := merge.ClearState(museDir, merge.CherryPickStateFile); err != nil {
		return nil, err
	}
	return &Result{Commit: c, SnapshotID: c.SnapshotID, Manifest: m}, nil
}

// Abort rolls a paused cherry-pick back: the branch ref returns to the
// recorded head commit and the working tree is rematerialized from it.
func (e *Engine) Abort() error {
	museDir := e.S.MuseDir()
	st, err := merge.LoadState(museDir, merge.CherryPickStateFile)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("cherry-pick: %w", merge.ErrNoOperation)
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

	return merge.ClearState(museDir, merge.CherryPickStateFile)
}

func pickMessage(cherry *commitgraph.Commit) string {
	return fmt.Sprintf("%s\n\n(cherry picked from commit %s)", cherry.Message, commitgraph.ShortID(cherry.ID))
}
