package merge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musehq/muse/internal/snapshot"
)

func TestDiffManifests(t *testing.T) {
	base := snapshot.Manifest{"beat.mid": "v1", "bass.mid": "v1", "pad.mid": "v1"}
	other := snapshot.Manifest{"beat.mid": "v2", "bass.mid": "v1", "lead.mid": "v1"}

	diff := DiffManifests(base, other)
	assert.Equal(t, []string{"beat.mid", "lead.mid", "pad.mid"}, diff)

	assert.Empty(t, DiffManifests(base, base.Clone()))
	assert.Empty(t, DiffManifests(snapshot.Manifest{}, snapshot.Manifest{}))
}

func TestMergeNonConflicting(t *testing.T) {
	base := snapshot.Manifest{"beat.mid": "v1", "bass.mid": "v1"}
	ours := snapshot.Manifest{"beat.mid": "v2", "bass.mid": "v1"}
	theirs := snapshot.Manifest{"beat.mid": "v1", "bass.mid": "v1", "lead.mid": "v1"}

	result := Merge(base, ours, theirs)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, snapshot.Manifest{
		"beat.mid": "v2",
		"bass.mid": "v1",
		"lead.mid": "v1",
	}, result.Manifest)
}

func TestMergeSameChangeBothSides(t *testing.T) {
	base := snapshot.Manifest{"beat.mid": "v1"}
	ours := snapshot.Manifest{"beat.mid": "v2"}
	theirs := snapshot.Manifest{"beat.mid": "v2"}

	result := Merge(base, ours, theirs)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, "v2", result.Manifest["beat.mid"])
}

func TestMergeConflictKeepsOurs(t *testing.T) {
	base := snapshot.Manifest{"beat.mid": "v1"}
	ours := snapshot.Manifest{"beat.mid": "ours"}
	theirs := snapshot.Manifest{"beat.mid": "theirs"}

	result := Merge(base, ours, theirs)
	assert.Equal(t, []string{"beat.mid"}, result.Conflicts)
	assert.Equal(t, "ours", result.Manifest["beat.mid"])
}

func TestMergeDeletionVersusEdit(t *testing.T) {
	base := snapshot.Manifest{"beat.mid": "v1", "old.mid": "v1"}
	ours := snapshot.Manifest{"beat.mid": "v2", "old.mid": "v1"}
	theirs := snapshot.Manifest{"beat.mid": "v1"} // theirs deleted old.mid

	result := Merge(base, ours, theirs)
	assert.Empty(t, result.Conflicts)
	_, exists := result.Manifest["old.mid"]
	assert.False(t, exists, "their deletion should carry over")
	assert.Equal(t, "v2", result.Manifest["beat.mid"])

	// Edit vs delete of the same path conflicts and keeps ours.
	theirs = snapshot.Manifest{"old.mid": "v1"} // theirs deleted beat.mid
	result = Merge(base, ours, theirs)
	assert.Equal(t, []string{"beat.mid"}, result.Conflicts)
	assert.Equal(t, "v2", result.Manifest["beat.mid"])
}

func TestApplyChange(t *testing.T) {
	// Cherry B adds solo.mid on top of base A; HEAD equals A.
	base := snapshot.Manifest{"beat.mid": "v1"}
	ours := snapshot.Manifest{"beat.mid": "v1"}
	theirs := snapshot.Manifest{"beat.mid": "v1", "solo.mid": "s1"}

	result := ApplyChange(base, ours, theirs)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, "s1", result.Manifest["solo.mid"])

	// Paths outside the change set keep ours' values even when they
	// diverge from base.
	ours = snapshot.Manifest{"beat.mid": "edited", "extra.mid": "e1"}
	result = ApplyChange(base, ours, theirs)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, "edited", result.Manifest["beat.mid"])
	assert.Equal(t, "e1", result.Manifest["extra.mid"])
	assert.Equal(t, "s1", result.Manifest["solo.mid"])
}

func TestApplyChangeConflict(t *testing.T) {
	base := snapshot.Manifest{"beat.mid": "v1"}
	ours := snapshot.Manifest{"beat.mid": "ours"}
	theirs := snapshot.Manifest{"beat.mid": "theirs"}

	result := ApplyChange(base, ours, theirs)
	assert.Equal(t, []string{"beat.mid"}, result.Conflicts)
	assert.Equal(t, "ours", result.Manifest["beat.mid"])
}

func TestStatePersistence(t *testing.T) {
	museDir := t.TempDir()

	// Absent state loads as nil without error.
	st, err := LoadState(museDir, CherryPickStateFile)
	require.NoError(t, err)
	assert.Nil(t, st)
	require.NoError(t, GuardIdle(museDir))

	saved := &State{
		SourceCommits: []string{"cherry1"},
		HeadCommit:    "head1",
		ConflictPaths: []string{"beat.mid", "bass.mid"},
	}
	require.NoError(t, SaveState(museDir, CherryPickStateFile, saved))

	loaded, err := LoadState(museDir, CherryPickStateFile)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	// Any persisted state blocks new operations.
	err = GuardIdle(museDir)
	require.ErrorIs(t, err, ErrOperationInProgress)
	file, err := InProgress(museDir)
	require.NoError(t, err)
	assert.Equal(t, CherryPickStateFile, file)

	require.NoError(t, ClearState(museDir, CherryPickStateFile))
	require.NoError(t, GuardIdle(museDir))
	// Clearing twice is a no-op.
	require.NoError(t, ClearState(museDir, CherryPickStateFile))
}

func TestStateResolved(t *testing.T) {
	st := &State{ConflictPaths: []string{"a.mid", "b.mid"}}
	assert.True(t, st.Resolved("a.mid"))
	assert.Equal(t, []string{"b.mid"}, st.ConflictPaths)
	assert.False(t, st.Resolved("a.mid"))
	assert.True(t, st.Resolved("b.mid"))
	assert.Empty(t, st.ConflictPaths)
}

func TestStateFileLocation(t *testing.T) {
	museDir := t.TempDir()
	require.NoError(t, SaveState(museDir, MergeStateFile, &State{HeadCommit: "h"}))
	assert.FileExists(t, filepath.Join(museDir, "MERGE_STATE.json"))
}
