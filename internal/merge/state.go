package merge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// State file names under .muse/. The schema is shared: which file a
// record lives in identifies the paused operation.
const (
	MergeStateFile      = "MERGE_STATE.json"
	CherryPickStateFile = "CHERRY_PICK_STATE.json"
)

// ErrOperationInProgress reports an attempt to start a merge-family
// operation while a previous one is paused on conflicts.
var ErrOperationInProgress = errors.New("operation already in progress")

// ErrNoOperation reports a continue/abort with no paused operation.
var ErrNoOperation = errors.New("no operation in progress")

// ConflictError reports conflicting paths from a paused operation. It is
// recoverable: the caller resolves the paths and continues, or aborts.
type ConflictError struct {
	Paths []string
}

func (e *ConflictError) Error() string {
	return Summary(e.Paths)
}

// State is the persisted record of a paused merge-family operation.
// It exists only while conflicts await manual resolution and is removed
// on a successful continue or an abort, never silently.
type State struct {
	SourceCommits []string `json:"source_commits"`
	HeadCommit    string   `json:"head_commit"`
	ConflictPaths []string `json:"conflict_paths"`
}

// Resolved removes a path from ConflictPaths, reporting whether it was
// present.
func (st *State) Resolved(path string) bool {
	for i, p := range st.ConflictPaths {
		if p == path {
			st.ConflictPaths = append(st.ConflictPaths[:i], st.ConflictPaths[i+1:]...)
			return true
		}
	}
	return false
}

// LoadState reads a state file, returning nil (no error) when absent.
func LoadState(museDir, file string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(museDir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return &st, nil
}

// SaveState persists a state file.
func SaveState(museDir, file string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(museDir, file), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}

// ClearState removes a state file. Removing an absent file is a no-op.
func ClearState(museDir, file string) error {
	err := os.Remove(filepath.Join(museDir, file))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear %s: %w", file, err)
	}
	return nil
}

// InProgress returns the name of the state file for any paused
// operation, or "" when the repository is idle.
func InProgress(museDir string) (string, error) {
	for _, file := range []string{MergeStateFile, CherryPickStateFile} {
		if _, err := os.Stat(filepath.Join(museDir, file)); err == nil {
			return file, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("check %s: %w", file, err)
		}
	}
	return "", nil
}

// GuardIdle fails with ErrOperationInProgress when any merge-family
// state file exists. Every start path calls this first.
func GuardIdle(museDir string) error {
	file, err := InProgress(museDir)
	if err != nil {
		return err
	}
	if file != "" {
		return fmt.Errorf("%s exists: %w", file, ErrOperationInProgress)
	}
	return nil
}
