// Package revert computes and applies the inverse of a single commit:
// the reverted tree equals the target commit's parent's tree, optionally
// scoped to one track or section of the arrangement.
package revert

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/merge"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/snapshot"
	"github.com/musehq/muse/internal/workspace"
)

// ErrUnresolvedRevision reports a revert target naming no commit.
var ErrUnresolvedRevision = errors.New("revision does not name a commit")

// Options control a revert run.
type Options struct {
	// Track limits the revert to paths under tracks/<Track>/.
	Track string
	// Section limits the revert to paths under sections/<Section>/.
	Section string
	// NoCommit applies deletions and writes to the working directory
	// without creating a commit.
	NoCommit bool
}

// Result is the outcome of a revert operation.
type Result struct {
	Commit      *commitgraph.Commit // nil for noop and --no-commit
	SnapshotID  string
	Manifest    snapshot.Manifest
	ScopedPaths []string // paths the scope filter considered, if scoped
	Deleted     []string // working-tree paths removed (--no-commit)
	Noop        bool
}

// ComputeRevertManifest builds the reverted manifest. Unscoped, the
// result is parentManifest verbatim: paths present only in headManifest
// drop out and paths only in parentManifest come back. Scoped, only
// paths under the track/section prefixes are taken from parentManifest
// while everything else keeps its headManifest value. The returned slice
// lists the scoped paths considered (empty when unscoped).
func ComputeRevertManifest(parentManifest, headManifest snapshot.Manifest, track, section string) (snapshot.Manifest, []string) {
	if track == "" && section == "" {
		return parentManifest.Clone(), nil
	}

	var prefixes []string
	if track != "" {
		prefixes = append(prefixes, "tracks/"+track+"/")
	}
	if section != "" {
		prefixes = append(prefixes, "sections/"+section+"/")
	}
	inScope := func(path string) bool {
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	scoped := make(map[string]bool)
	result := make(snapshot.Manifest, len(headManifest))
	for path, hash := range headManifest {
		if inScope(path) {
			scoped[path] = true
			continue // scoped paths come from the parent side only
		}
		result[path] = hash
	}
	for path, hash := range parentManifest {
		if inScope(path) {
			scoped[path] = true
			result[path] = hash
		}
	}

	scopedPaths := make([]string, 0, len(scoped))
	for path := range scoped {
		scopedPaths = append(scopedPaths, path)
	}
	sort.Strings(scopedPaths)
	return result, scopedPaths
}

// Engine applies reverts against one repository session.
type Engine struct {
	S *session.Session
}

// New creates a revert engine.
func New(s *session.Session) *Engine {
	return &Engine{S: s}
}

// Revert inverts the named commit on top of HEAD. Reverting to a state
// identical to HEAD's snapshot reports a noop instead of creating a
// degenerate commit, so reverting the same commit twice in a row is
// safe and intentional.
func (e *Engine) Revert(rev string, opts Options) (*Result, error) {
	museDir := e.S.MuseDir()
	if err := merge.GuardIdle(museDir); err != nil {
		return nil, err
	}

	branch, err := e.S.CurrentBranch()
	if err != nil {
		return nil, err
	}
	headManifest, head, err := e.S.HeadManifest()
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
	target, err := commitgraph.Get(e.S.DB, res.CommitID)
	if err != nil {
		return nil, err
	}

	parentManifest, err := e.S.ParentManifestOf(target)
	if err != nil {
		return nil, err
	}

	result, scopedPaths := ComputeRevertManifest(parentManifest, headManifest, opts.Track, opts.Section)
	resultID := snapshot.ComputeID(result)
	if resultID == head.SnapshotID {
		return &Result{Noop: true, Manifest: result, SnapshotID: resultID, ScopedPaths: scopedPaths}, nil
	}

	if opts.NoCommit {
		applied, err := workspace.Materialize(e.S.WorkDir(), result, e.S.Objects)
		if err != nil {
			return nil, err
		}
		return &Result{
			Manifest:    result,
			SnapshotID:  resultID,
			ScopedPaths: scopedPaths,
			Deleted:     applied.Deleted,
		}, nil
	}

	message := revertMessage(target)
	c, err := e.S.CommitManifest(branch, head.ID, result, message, e.S.Repo.Author(), time.Now())
	if err != nil {
		return nil, err
	}
	if _, err := workspace.Materialize(e.S.WorkDir(), result, e.S.Objects); err != nil {
		return nil, err
	}
	return &Result{Commit: c, SnapshotID: c.SnapshotID, Manifest: result, ScopedPaths: scopedPaths}, nil
}

func revertMessage(target *commitgraph.Commit) string {
	subject := target.Message
	if i := strings.IndexByte(subject, '\n'); i >= 0 {
		subject = subject[:i]
	}
	return fmt.Sprintf("Revert %q\n\nThis reverts commit %s.", subject, commitgraph.ShortID(target.ID))
}
