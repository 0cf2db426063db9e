// Package worktree manages linked working directories that share one
// repository's object and ref store.
//
// A linked worktree is a directory holding a .muse pointer file
// (content "gitdir: <main .muse path>") and its own muse-work area; it
// owns no objects or refs. Registrations live under the main
// repository's .muse/worktrees/<slug>/ as two text files, path and
// branch. The invariant enforced here is branch exclusivity: a branch
// is checked out in at most one worktree, main included.
package worktree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/musehq/muse/internal/refs"
	"github.com/musehq/muse/internal/repo"
)

// ErrBranchAlreadyCheckedOut reports a branch already bound to another
// worktree (main or linked).
var ErrBranchAlreadyCheckedOut = errors.New("branch is already checked out")

// ErrNotAWorktree reports a remove target that is not a registered
// linked worktree.
var ErrNotAWorktree = errors.New("not a linked worktree")

// ErrMainWorktree reports an attempt to remove the main worktree.
var ErrMainWorktree = errors.New("cannot remove the main worktree")

// Registration is one persisted worktree record.
type Registration struct {
	Slug   string
	Path   string
	Branch string
}

// Entry is one row of a worktree listing.
type Entry struct {
	Path     string
	Branch   string
	CommitID string // empty when the branch has no commits
	Main     bool
}

func worktreesDir(r *repo.Repo) string {
	return filepath.Join(r.MuseDir, "worktrees")
}

// Add registers a new linked worktree at linkPath checked out on branch,
// creating the branch from the current HEAD commit if it does not exist.
func Add(r *repo.Repo, linkPath, branch string) (*Registration, error) {
	linkPath, err := filepath.Abs(linkPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(linkPath); err == nil {
		return nil, fmt.Errorf("path %s already exists", linkPath)
	}
	if linkPath == r.MainRoot {
		return nil, fmt.Errorf("path %s is the main worktree", linkPath)
	}
	if strings.HasPrefix(linkPath+string(filepath.Separator), r.MuseDir+string(filepath.Separator)) {
		return nil, fmt.Errorf("path %s is inside the repository metadata directory", linkPath)
	}

	// Branch exclusivity is checked against every registration plus the
	// main HEAD before anything is created.
	checkedOut, err := checkedOutBranches(r)
	if err != nil {
		return nil, err
	}
	if _, taken := checkedOut[branch]; taken {
		return nil, fmt.Errorf("branch %s: %w", branch, ErrBranchAlreadyCheckedOut)
	}

	if !refs.BranchExists(r.MuseDir, branch) {
		head, err := refs.ReadHead(r.MuseDir)
		if err != nil {
			return nil, err
		}
		tip := ""
		switch head.Kind {
		case refs.HeadSymbolic:
			if tip, err = refs.BranchTip(r.MuseDir, head.Branch); err != nil {
				return nil, err
			}
		case refs.HeadDetached:
			tip = head.CommitID
		}
		if err := refs.WriteBranchTip(r.MuseDir, branch, tip); err != nil {
			return nil, err
		}
	}

	slug, err := reserveSlug(r, filepath.Base(linkPath))
	if err != nil {
		return nil, err
	}
	regDir := filepath.Join(worktreesDir(r), slug)

	if err := os.MkdirAll(filepath.Join(linkPath, repo.WorkDirName), 0755); err != nil {
		return nil, fmt.Errorf("create worktree dirs: %w", err)
	}
	pointer := "gitdir: " + r.MuseDir + "\n"
	if err := os.WriteFile(filepath.Join(linkPath, repo.MuseDirName), []byte(pointer), 0644); err != nil {
		return nil, fmt.Errorf("write worktree pointer: %w", err)
	}

	if err := os.WriteFile(filepath.Join(regDir, "path"), []byte(linkPath+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write registration path: %w", err)
	}
	if err := os.WriteFile(filepath.Join(regDir, "branch"), []byte(branch+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write registration branch: %w", err)
	}

	return &Registration{Slug: slug, Path: linkPath, Branch: branch}, nil
}

// Remove deletes a linked worktree's directory and registration. Branch
// refs and the object store are never touched, and a directory already
// removed externally does not fail the operation.
func Remove(r *repo.Repo, linkPath string) error {
	linkPath, err := filepath.Abs(linkPath)
	if err != nil {
		return err
	}
	if linkPath == r.MainRoot {
		return ErrMainWorktree
	}

	regs, err := Registrations(r)
	if err != nil {
		return err
	}
	for _, reg := range regs {
		if reg.Path != linkPath {
			continue
		}
		if err := os.RemoveAll(linkPath); err != nil {
			return fmt.Errorf("remove worktree dir: %w", err)
		}
		if err := os.RemoveAll(filepath.Join(worktreesDir(r), reg.Slug)); err != nil {
			return fmt.Errorf("remove registration: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", linkPath, ErrNotAWorktree)
}

// List returns the main worktree first, then linked worktrees in
// registration order, each with its branch and current commit.
func List(r *repo.Repo) ([]Entry, error) {
	head, err := refs.ReadHead(r.MuseDir)
	if err != nil {
		return nil, err
	}
	main := Entry{Path: r.MainRoot, Main: true}
	switch head.Kind {
	case refs.HeadSymbolic:
		main.Branch = head.Branch
		if main.CommitID, err = refs.BranchTip(r.MuseDir, head.Branch); err != nil {
			return nil, err
		}
	case refs.HeadDetached:
		main.CommitID = head.CommitID
	}
	entries := []Entry{main}

	regs, err := Registrations(r)
	if err != nil {
		return nil, err
	}
	for _, reg := range regs {
		tip, err := refs.BranchTip(r.MuseDir, reg.Branch)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Path: reg.Path, Branch: reg.Branch, CommitID: tip})
	}
	return entries, nil
}

// Prune drops registrations whose directory no longer exists and
// returns the pruned paths. Safe to call at any time; pruning nothing
// is not an error.
func Prune(r *repo.Repo) ([]string, error) {
	regs, err := Registrations(r)
	if err != nil {
		return nil, err
	}
	var pruned []string
	for _, reg := range regs {
		if _, err := os.Stat(reg.Path); err == nil {
			continue
		}
		if err := os.RemoveAll(filepath.Join(worktreesDir(r), reg.Slug)); err != nil {
			return pruned, fmt.Errorf("prune %s: %w", reg.Slug, err)
		}
		pruned = append(pruned, reg.Path)
	}
	return pruned, nil
}

// Registrations reads every persisted worktree record, in slug order.
func Registrations(r *repo.Repo) ([]Registration, error) {
	dirEntries, err := os.ReadDir(worktreesDir(r))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read worktrees dir: %w", err)
	}

	var regs []Registration
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		regDir := filepath.Join(worktreesDir(r), de.Name())
		path, err := readTrimmed(filepath.Join(regDir, "path"))
		if err != nil {
			return nil, err
		}
		branch, err := readTrimmed(filepath.Join(regDir, "branch"))
		if err != nil {
			return nil, err
		}
		regs = append(regs, Registration{Slug: de.Name(), Path: path, Branch: branch})
	}
	return regs, nil
}

func checkedOutBranches(r *repo.Repo) (map[string]string, error) {
	out := make(map[string]string)

	head, err := refs.ReadHead(r.MuseDir)
	if err != nil {
		return nil, err
	}
	if head.Kind == refs.HeadSymbolic {
		out[head.Branch] = r.MainRoot
	}

	regs, err := Registrations(r)
	if err != nil {
		return nil, err
	}
	for _, reg := range regs {
		out[reg.Branch] = reg.Path
	}
	return out, nil
}

// reserveSlug creates the registration directory, appending a numeric
// suffix until an unused slug is found.
func reserveSlug(r *repo.Repo, base string) (string, error) {
	if err := os.MkdirAll(worktreesDir(r), 0755); err != nil {
		return "", fmt.Errorf("create worktrees dir: %w", err)
	}
	slug := base
	for i := 1; ; i++ {
		err := os.Mkdir(filepath.Join(worktreesDir(r), slug), 0755)
		if err == nil {
			return slug, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("reserve worktree slug: %w", err)
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
