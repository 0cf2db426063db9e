package reset_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musehq/muse/internal/commitgraph"
	"github.com/musehq/muse/internal/musetest"
	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/reset"
	"github.com/musehq/muse/internal/session"
	"github.com/musehq/muse/internal/snapshot"
	"github.com/musehq/muse/internal/workspace"
)

// twoCommits records two commits and returns them oldest first.
func twoCommits(t *testing.T, s *session.Session) (first, second *commitgraph.Commit) {
	t.Helper()
	musetest.WriteWorkFile(t, s, "tracks/drums/beat.mid", "beat-v1")
	a := musetest.Commit(t, s, "lay down the beat")
	musetest.WriteWorkFile(t, s, "tracks/drums/beat.mid", "beat-v2")
	musetest.WriteWorkFile(t, s, "tracks/lead/solo.mid", "solo-v1")
	b := musetest.Commit(t, s, "overdub a solo")
	return a, b
}

func TestSoftResetMovesRefOnly(t *testing.T) {
	s := musetest.InitRepo(t)
	first, _ := twoCommits(t, s)

	result, err := reset.New(s).Reset("HEAD~1", reset.Options{Mode: reset.Soft})
	require.NoError(t, err)
	assert.Equal(t, "main", result.Branch)
	assert.Equal(t, first.ID, result.Target.ID)
	assert.Zero(t, result.Restored)
	assert.Zero(t, result.Deleted)

	tip, err := refs.BranchTip(s.MuseDir(), "main")
	require.NoError(t, err)
	assert.Equal(t, first.ID, tip)

	// Working tree is untouched.
	assert.Equal(t, "beat-v2", musetest.ReadWorkFile(t, s, "tracks/drums/beat.mid"))
	assert.True(t, musetest.WorkFileExists(s, "tracks/lead/solo.mid"))
}

func TestMixedResetBehavesLikeSoft(t *testing.T) {
	s := musetest.InitRepo(t)
	first, _ := twoCommits(t, s)

	result, err := reset.New(s).Reset(first.ID, reset.Options{Mode: reset.Mixed})
	require.NoError(t, err)
	assert.Equal(t, first.ID, result.Target.ID)
	assert.Equal(t, "beat-v2", musetest.ReadWorkFile(t, s, "tracks/drums/beat.mid"))
}

func TestHardResetRequiresConfirmation(t *testing.T) {
	s := musetest.InitRepo(t)
	_, second := twoCommits(t, s)

	_, err := reset.New(s).Reset("HEAD~1", reset.Options{Mode: reset.Hard})
	require.ErrorIs(t, err, reset.ErrConfirmRequired)

	// Refused before touching the ref.
	tip, err := refs.BranchTip(s.MuseDir(), "main")
	require.NoError(t, err)
	assert.Equal(t, second.ID, tip)
}

func TestHardResetRewritesWorkingTree(t *testing.T) {
	s := musetest.InitRepo(t)
	first, _ := twoCommits(t, s)

	result, err := reset.New(s).Reset("HEAD~1", reset.Options{Mode: reset.Hard, Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, result.Target.ID)
	assert.Equal(t, 1, result.Restored, "beat.mid rewritten to v1")
	assert.Equal(t, 1, result.Deleted, "solo.mid removed")

	assert.Equal(t, "beat-v1", musetest.ReadWorkFile(t, s, "tracks/drums/beat.mid"))
	assert.False(t, musetest.WorkFileExists(s, "tracks/lead/solo.mid"))
}

func TestResetUnresolvedRevision(t *testing.T) {
	s := musetest.InitRepo(t)
	twoCommits(t, s)

	_, err := reset.New(s).Reset("nope", reset.Options{Mode: reset.Soft})
	require.ErrorIs(t, err, reset.ErrUnresolvedRevision)
}

func TestHardResetMissingObject(t *testing.T) {
	s := musetest.InitRepo(t)
	twoCommits(t, s)

	// Record a commit whose manifest references a blob never stored.
	ghost := strings.Repeat("ab", 32)
	m := snapshot.Manifest{"tracks/drums/beat.mid": ghost}
	head, err := s.HeadCommit()
	require.NoError(t, err)
	c, err := s.CommitManifest("main", head.ID, m, "ghost", "test", head.CommittedAt)
	require.NoError(t, err)

	_, err = reset.New(s).Reset(c.ID, reset.Options{Mode: reset.Hard, Confirm: true})
	var missing *workspace.MissingObjectError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "tracks/drums/beat.mid", missing.Path)
	assert.Equal(t, ghost, missing.Hash)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "soft", reset.Soft.String())
	assert.Equal(t, "mixed", reset.Mixed.String())
	assert.Equal(t, "hard", reset.Hard.String())
}
