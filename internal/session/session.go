// Package session bundles an opened repository with its metadata
// database and object store, and provides the shared commit write path
// used by the CLI and the history-editing engines.
//
// Engines take a Session rather than opening storage themselves, so a
// logical operation runs against one database handle and can be treated
// as a single unit of work.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/musehq/muse/internal/cas"
	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/repo"
	"github.com/musehq/muse/internal/revparse"
	"github.com/musehq/muse/internal/snapshot"
	"github.com/musehq/muse/internal/store"
)

// ErrNoBranch reports an operation that needs a symbolic HEAD while the
// repository is detached or empty.
var ErrNoBranch = errors.New("HEAD is not on a branch")

// ErrNoCommits reports an operation that needs a commit on the current
// branch when none exists yet.
var ErrNoCommits = errors.New("current branch has no commits")

// Session is an opened repository plus its storage handles.
type Session struct {
	Repo    *repo.Repo
	DB      *store.DB
	Objects *cas.FileCAS
}

// Open locates the repository containing start and opens its storage.
func Open(start string) (*Session, error) {
	r, err := repo.Find(start)
	if err != nil {
		return nil, err
	}
	return OpenAt(r)
}

// OpenAt opens storage for an already-located repository.
func OpenAt(r *repo.Repo) (*Session, error) {
	db, err := r.OpenDB()
	if err != nil {
		return nil, err
	}
	objects, err := r.Objects()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Session{Repo: r, DB: db, Objects: objects}, nil
}

// Close releases the database handle.
func (s *Session) Close() error {
	return s.DB.Close()
}

// MuseDir returns the repository's real .muse directory.
func (s *Session) MuseDir() string { return s.Repo.MuseDir }

// WorkDir returns this worktree's working-tree area.
func (s *Session) WorkDir() string { return s.Repo.WorkDir() }

// RepoID returns the repository id from the descriptor.
func (s *Session) RepoID() string { return s.Repo.Desc.RepoID }

// CurrentBranch returns the branch HEAD points at, or ErrNoBranch when
// HEAD is detached or missing.
func (s *Session) CurrentBranch() (string, error) {
	head, err := refs.ReadHead(s.MuseDir())
	if err != nil {
		return "", err
	}
	if head.Kind != refs.HeadSymbolic {
		return "", ErrNoBranch
	}
	return head.Branch, nil
}

// HeadCommit returns the commit HEAD resolves to, or nil when the
// current branch has no commits yet.
func (s *Session) HeadCommit() (*commitgraph.Commit, error) {
	head, err := refs.ReadHead(s.MuseDir())
	if err != nil {
		return nil, err
	}
	switch head.Kind {
	case refs.HeadSymbolic:
		tip, err := refs.BranchTip(s.MuseDir(), head.Branch)
		if err != nil {
			return nil, err
		}
		if tip == "" {
			return nil, nil
		}
		return commitgraph.Get(s.DB, tip)
	case refs.HeadDetached:
		return commitgraph.Get(s.DB, head.CommitID)
	default:
		return nil, nil
	}
}

// HeadManifest returns HEAD's snapshot manifest alongside the commit.
// An empty manifest and nil commit mean the branch has no commits.
func (s *Session) HeadManifest() (snapshot.Manifest, *commitgraph.Commit, error) {
	head, err := s.HeadCommit()
	if err != nil {
		return nil, nil, err
	}
	if head == nil {
		return make(snapshot.Manifest), nil, nil
	}
	m, err := snapshot.Get(s.DB, head.SnapshotID)
	if err != nil {
		return nil, nil, err
	}
	return m, head, nil
}

// Resolve resolves a revision expression against this repository.
func (s *Session) Resolve(expr string) (*revparse.Resolution, bool, error) {
	return revparse.Resolve(s.MuseDir(), s.DB, s.RepoID(), expr)
}

// ManifestOf loads the snapshot manifest of a commit.
func (s *Session) ManifestOf(c *commitgraph.Commit) (snapshot.Manifest, error) {
	return snapshot.Get(s.DB, c.SnapshotID)
}

// ParentManifestOf loads the manifest of a commit's parent, or an empty
// manifest for a root commit.
func (s *Session) ParentManifestOf(c *commitgraph.Commit) (snapshot.Manifest, error) {
	if c.ParentID == "" {
		return make(snapshot.Manifest), nil
	}
	parent, err := commitgraph.Get(s.DB, c.ParentID)
	if err != nil {
		return nil, err
	}
	return snapshot.Get(s.DB, parent.SnapshotID)
}

// CommitManifest persists a manifest as a snapshot, inserts the commit
// record, and advances the branch ref, as one logical unit. The ref is
// written last so a crash never leaves it pointing at a missing commit.
func (s *Session) CommitManifest(branch, parentID string, m snapshot.Manifest, message, author string, committedAt time.Time) (*commitgraph.Commit, error) {
	snapshotID := snapshot.ComputeID(m)
	if err := snapshot.Upsert(s.DB, m, snapshotID); err != nil {
		return nil, err
	}

	c := &commitgraph.Commit{
		ID:          commitgraph.ComputeID(parentID, snapshotID, message, committedAt),
		RepoID:      s.RepoID(),
		Branch:      branch,
		ParentID:    parentID,
		SnapshotID:  snapshotID,
		Message:     message,
		Author:      author,
		CommittedAt: committedAt.UTC().Truncate(time.Second),
	}
	if err := commitgraph.Insert(s.DB, c); err != nil {
		return nil, err
	}
	if err := refs.WriteBranchTip(s.MuseDir(), branch, c.ID); err != nil {
		return nil, fmt.Errorf("advance %s: %w", branch, err)
	}
	return c, nil
}

// CommitWorkingTree snapshots this worktree's muse-work area and appends
// a commit to the current branch.
func (s *Session) CommitWorkingTree(message string) (*commitgraph.Commit, error) {
	branch, err := s.CurrentBranch()
	if err != nil {
		return nil, err
	}

	m, err := snapshot.BuildManifest(s.WorkDir(), s.Objects)
	if err != nil {
		return nil, err
	}

	parentID := ""
	if head, err := s.HeadCommit(); err != nil {
		return nil, err
	} else if head != nil {
		parentID = head.ID
	}

	return s.CommitManifest(branch, parentID, m, message, s.Repo.Author(), time.Now())
}
