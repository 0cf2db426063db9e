package worktree_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musehq/muse/internal/musetest"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/repo"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/worktree"
)

// seededRepo initializes a repository with one commit on main so new
// branches have a tip to fork from.
func seededRepo(t *testing.T) *session.Session {
	t.Helper()
	s := musetest.InitRepo(t)
	musetest.WriteWorkFile(t, s, "tracks/drums/beat.mid", "beat-v1")
	musetest.Commit(t, s, "lay down the beat")
	return s
}

func TestAddCreatesLinkedWorktree(t *testing.T) {
	s := seededRepo(t)
	linkPath := filepath.Join(t.TempDir(), "alt-mix")

	reg, err := worktree.Add(s.Repo, linkPath, "alt-mix")
	require.NoError(t, err)
	assert.Equal(t, linkPath, reg.Path)
	assert.Equal(t, "alt-mix", reg.Branch)

	// The pointer file and work area exist.
	data, err := os.ReadFile(filepath.Join(linkPath, repo.MuseDirName))
	require.NoError(t, err)
	assert.Equal(t, "gitdir: "+s.MuseDir()+"\n", string(data))
	assert.DirExists(t, filepath.Join(linkPath, repo.WorkDirName))

	// The new branch forks from the main HEAD commit.
	mainTip, err := refs.BranchTip(s.MuseDir(), "main")
	require.NoError(t, err)
	altTip, err := refs.BranchTip(s.MuseDir(), "alt-mix")
	require.NoError(t, err)
	assert.Equal(t, mainTip, altTip)
}

func TestAddOpensAsRepository(t *testing.T) {
	s := seededRepo(t)
	linkPath := filepath.Join(t.TempDir(), "alt-mix")

	_, err := worktree.Add(s.Repo, linkPath, "alt-mix")
	require.NoError(t, err)

	linked, err := repo.Find(linkPath)
	require.NoError(t, err)
	assert.True(t, linked.Linked)
	assert.Equal(t, s.MuseDir(), linked.MuseDir, "linked worktree shares the main metadata dir")
	assert.Equal(t, filepath.Join(linkPath, repo.WorkDirName), linked.WorkDir())
}

func TestAddEnforcesBranchExclusivity(t *testing.T) {
	s := seededRepo(t)
	base := t.TempDir()

	// main is checked out in the main worktree.
	_, err := worktree.Add(s.Repo, filepath.Join(base, "wt1"), "main")
	require.ErrorIs(t, err, worktree.ErrBranchAlreadyCheckedOut)

	_, err = worktree.Add(s.Repo, filepath.Join(base, "wt1"), "alt-mix")
	require.NoError(t, err)

	// Same branch in a second linked worktree is refused.
	_, err = worktree.Add(s.Repo, filepath.Join(base, "wt2"), "alt-mix")
	require.ErrorIs(t, err, worktree.ErrBranchAlreadyCheckedOut)
}

func TestAddRejectsExistingPath(t *testing.T) {
	s := seededRepo(t)
	existing := t.TempDir()

	_, err := worktree.Add(s.Repo, existing, "alt-mix")
	require.Error(t, err)
}

func TestListOrdersMainFirst(t *testing.T) {
	s := seededRepo(t)
	base := t.TempDir()

	_, err := worktree.Add(s.Repo, filepath.Join(base, "takes"), "takes")
	require.NoError(t, err)
	_, err = worktree.Add(s.Repo, filepath.Join(base, "alt-mix"), "alt-mix")
	require.NoError(t, err)

	entries, err := worktree.List(s.Repo)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.True(t, entries[0].Main)
	assert.Equal(t, "main", entries[0].Branch)
	assert.Equal(t, s.Repo.MainRoot, entries[0].Path)

	// Linked worktrees follow in slug order.
	assert.Equal(t, "alt-mix", entries[1].Branch)
	assert.Equal(t, "takes", entries[2].Branch)

	mainTip, err := refs.BranchTip(s.MuseDir(), "main")
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, mainTip, e.CommitID, e.Path)
	}
}

func TestRemoveWorktree(t *testing.T) {
	s := seededRepo(t)
	linkPath := filepath.Join(t.TempDir(), "alt-mix")

	_, err := worktree.Add(s.Repo, linkPath, "alt-mix")
	require.NoError(t, err)

	require.NoError(t, worktree.Remove(s.Repo, linkPath))
	assert.NoDirExists(t, linkPath)

	regs, err := worktree.Registrations(s.Repo)
	require.NoError(t, err)
	assert.Empty(t, regs)

	// The branch ref survives removal.
	assert.True(t, refs.BranchExists(s.MuseDir(), "alt-mix"))

	require.ErrorIs(t, worktree.Remove(s.Repo, linkPath), worktree.ErrNotAWorktree)
	require.ErrorIs(t, worktree.Remove(s.Repo, s.Repo.MainRoot), worktree.ErrMainWorktree)
}

func TestRemoveToleratesMissingDirectory(t *testing.T) {
	s := seededRepo(t)
	linkPath := filepath.Join(t.TempDir(), "alt-mix")

	_, err := worktree.Add(s.Repo, linkPath, "alt-mix")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(linkPath))

	require.NoError(t, worktree.Remove(s.Repo, linkPath))
	regs, err := worktree.Registrations(s.Repo)
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestPrune(t *testing.T) {
	s := seededRepo(t)
	base := t.TempDir()
	keep := filepath.Join(base, "keep")
	gone := filepath.Join(base, "gone")

	_, err := worktree.Add(s.Repo, keep, "keep")
	require.NoError(t, err)
	_, err = worktree.Add(s.Repo, gone, "gone")
	require.NoError(t, err)

	pruned, err := worktree.Prune(s.Repo)
	require.NoError(t, err)
	assert.Empty(t, pruned)

	require.NoError(t, os.RemoveAll(gone))

	pruned, err = worktree.Prune(s.Repo)
	require.NoError(t, err)
	assert.Equal(t, []string{gone}, pruned)

	regs, err := worktree.Registrations(s.Repo)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, keep, regs[0].Path)
}

func TestSlugCollision(t *testing.T) {
	s := seededRepo(t)
	a := filepath.Join(t.TempDir(), "mix")
	b := filepath.Join(t.TempDir(), "mix")

	regA, err := worktree.Add(s.Repo, a, "mix-a")
	require.NoError(t, err)
	regB, err := worktree.Add(s.Repo, b, "mix-b")
	require.NoError(t, err)

	assert.Equal(t, "mix", regA.Slug)
	assert.Equal(t, "mix-1", regB.Slug)
}
