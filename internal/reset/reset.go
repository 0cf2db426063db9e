// Package reset moves the current branch pointer to an earlier (or any)
// commit, optionally rewriting the working tree to match.
package reset

import (
	"errors"
	"fmt"

	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/workspace"
)

// Mode selects how much state a reset rewrites.
type Mode int

const (
	// Soft moves only the branch ref.
	Soft Mode = iota
	// Mixed behaves like Soft. Muse has no staging area; the mode is
	// kept distinct for forward compatibility.
	Mixed
	// Hard moves the ref and rewrites the working tree from the target
	// snapshot.
	Hard
)

func (m Mode) String() string {
	switch m {
	case Soft:
		return "soft"
	case Mixed:
		return "mixed"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ErrUnresolvedRevision reports a reset target naming no commit.
var ErrUnresolvedRevision = errors.New("revision does not name a commit")

// ErrConfirmRequired reports a hard reset attempted without the explicit
// confirmation flag. The engine never destroys a working tree silently.
var ErrConfirmRequired = errors.New("hard reset requires explicit confirmation")

// Options control a reset.
type Options struct {
	Mode Mode
	// Confirm must be set for a hard reset.
	Confirm bool
}

// Result reports what a reset did.
type Result struct {
	Branch   string
	Target   *commitgraph.Commit
	Restored int // files rewritten (hard only)
	Deleted  int // files removed (hard only)
}

// Engine performs resets against one repository session.
type Engine struct {
	S *session.Session
}

// New creates a reset engine.
func New(s *session.Session) *Engine {
	return &Engine{S: s}
}

// Reset moves the current branch to the resolved target commit.
func (e *Engine) Reset(rev string, opts Options) (*Result, error) {
	if opts.Mode == Hard && !opts.Confirm {
		return nil, ErrConfirmRequired
	}

	branch, err := e.S.CurrentBranch()
	if err != nil {
		return nil, err
	}

	res, ok, err := e.S.Resolve(rev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%q: %w", rev, ErrUnresolvedRevision)
	}
	target, err := commitgraph.Get(e.S.DB, res.CommitID)
	if err != nil {
		return nil, err
	}

	if err := refs.WriteBranchTip(e.S.MuseDir(), branch, target.ID); err != nil {
		return nil, err
	}
	result := &Result{Branch: branch, Target: target}

	if opts.Mode != Hard {
		return result, nil
	}

	manifest, err := e.S.ManifestOf(target)
	if err != nil {
		return nil, err
	}
	applied, err := workspace.Materialize(e.S.WorkDir(), manifest, e.S.Objects)
	if err != nil {
		return nil, err
	}
	result.Restored = len(applied.Restored)
	result.Deleted = len(applied.Deleted)
	return result, nil
}
