// Package merge implements three-way manifest diff and merge for Muse
// snapshots, plus the persisted conflict state shared by merge,
// cherry-pick, and revert operations.
//
// Diffs operate at manifest level: a path differs between two manifests
// when its content hash differs or it exists on only one side. A merge
// of ours and theirs against their common base takes each single-sided
// change as-is; when both sides changed a path to different values the
// result keeps ours' value and records the path as a conflict.
package merge

import (
	"fmt"
	"sort"

	"github.com/musehq/muse/internal/snapshot"
)

// DiffManifests returns the sorted set of paths whose content hash (or
// existence) differs between manifests a and b.
func DiffManifests(a, b snapshot.Manifest) []string {
	changed := make(map[string]bool)
	for path, hash := range a {
		if b[path] != hash {
			changed[path] = true
		}
	}
	for path, hash := range b {
		if a[path] != hash {
			changed[path] = true
		}
	}

	paths := make([]string, 0, len(changed))
	for path := range changed {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Result is the outcome of a three-way merge.
type Result struct {
	Manifest  snapshot.Manifest
	Conflicts []string // sorted paths both sides changed to different values
}

// Merge combines ours and theirs against their common base. Paths only
// one side changed take that side's value; paths both sides changed to
// the same value are not conflicts; true conflicts keep ours' value and
// are recorded in Conflicts.
func Merge(base, ours, theirs snapshot.Manifest) *Result {
	result := ours.Clone()
	var conflicts []string

	oursChanged := make(map[string]bool)
	for _, path := range DiffManifests(base, ours) {
		oursChanged[path] = true
	}

	for _, path := range DiffManifests(base, theirs) {
		theirsHash, theirsHas := theirs[path]
		if !oursChanged[path] {
			// Only theirs touched it: adopt their value or deletion.
			if theirsHas {
				result[path] = theirsHash
			} else {
				delete(result, path)
			}
			continue
		}
		oursHash, oursHas := ours[path]
		if oursHas == theirsHas && oursHash == theirsHash {
			continue // both sides made the same change
		}
		conflicts = append(conflicts, path)
	}

	sort.Strings(conflicts)
	return &Result{Manifest: result, Conflicts: conflicts}
}

// ApplyChange transplants one commit's change set (theirs relative to
// base) onto ours, leaving paths outside the change set untouched. This
// is the cherry-pick primitive; conflict handling matches Merge.
func ApplyChange(base, ours, theirs snapshot.Manifest) *Result {
	headChanged := make(map[string]bool)
	for _, path := range DiffManifests(base, ours) {
		headChanged[path] = true
	}

	result := ours.Clone()
	var conflicts []string
	for _, path := range DiffManifests(base, theirs) {
		theirsHash, theirsHas := theirs[path]
		if headChanged[path] {
			oursHash, oursHas := ours[path]
			if oursHas == theirsHas && oursHash == theirsHash {
				continue
			}
			// Both histories touched the path differently: keep ours.
			conflicts = append(conflicts, path)
			continue
		}
		if theirsHas {
			result[path] = theirsHash
		} else {
			delete(result, path)
		}
	}

	sort.Strings(conflicts)
	return &Result{Manifest: result, Conflicts: conflicts}
}

// Summary formats a conflict list for error messages.
func Summary(conflicts []string) string {
	switch len(conflicts) {
	case 0:
		return "no conflicts"
	case 1:
		return fmt.Sprintf("conflict in %s", conflicts[0])
	default:
		return fmt.Sprintf("%d conflicting paths", len(conflicts))
	}
}
