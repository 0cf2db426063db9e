package refs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadHeadStates(t *testing.T) {
	museDir := t.TempDir()

	// No HEAD file at all: empty, not an error.
	head, err := ReadHead(museDir)
	if err != nil {
		t.Fatalf("ReadHead failed: %v", err)
	}
	if head.Kind != HeadEmpty {
		t.Fatalf("expected HeadEmpty, got %v", head.Kind)
	}

	if err := WriteSymbolicRef(museDir, "HEAD", "refs/heads/main"); err != nil {
		t.Fatalf("WriteSymbolicRef failed: %v", err)
	}
	head, err = ReadHead(museDir)
	if err != nil {
		t.Fatalf("ReadHead failed: %v", err)
	}
	if head.Kind != HeadSymbolic || head.Branch != "main" {
		t.Fatalf("expected symbolic main, got %+v", head)
	}

	// Detached: bare commit id.
	if err := os.WriteFile(filepath.Join(museDir, "HEAD"), []byte("abc123\n"), 0644); err != nil {
		t.Fatal(err)
	}
	head, err = ReadHead(museDir)
	if err != nil {
		t.Fatalf("ReadHead failed: %v", err)
	}
	if head.Kind != HeadDetached || head.CommitID != "abc123" {
		t.Fatalf("expected detached abc123, got %+v", head)
	}
}

func TestWriteSymbolicRefValidatesTarget(t *testing.T) {
	err := WriteSymbolicRef(t.TempDir(), "HEAD", "heads/main")
	if !errors.Is(err, ErrInvalidRefTarget) {
		t.Fatalf("expected ErrInvalidRefTarget, got %v", err)
	}
}

func TestBranchTipMissingFile(t *testing.T) {
	tip, err := BranchTip(t.TempDir(), "main")
	if err != nil {
		t.Fatalf("BranchTip failed: %v", err)
	}
	if tip != "" {
		t.Fatalf("expected empty tip, got %q", tip)
	}
}

func TestBranchTipRoundTrip(t *testing.T) {
	museDir := t.TempDir()

	if err := WriteBranchTip(museDir, "feature/bridge", "c0ffee"); err != nil {
		t.Fatalf("WriteBranchTip failed: %v", err)
	}
	tip, err := BranchTip(museDir, "feature/bridge")
	if err != nil {
		t.Fatalf("BranchTip failed: %v", err)
	}
	if tip != "c0ffee" {
		t.Fatalf("expected c0ffee, got %q", tip)
	}

	// Empty tip marks a branch with no commits.
	if err := WriteBranchTip(museDir, "empty", ""); err != nil {
		t.Fatal(err)
	}
	tip, err = BranchTip(museDir, "empty")
	if err != nil || tip != "" {
		t.Fatalf("expected empty tip, got %q, %v", tip, err)
	}
}

func TestDeleteRef(t *testing.T) {
	museDir := t.TempDir()

	deleted, err := DeleteRef(museDir, BranchRef("ghost"))
	if err != nil {
		t.Fatalf("DeleteRef failed: %v", err)
	}
	if deleted {
		t.Fatal("deleting an absent ref reported true")
	}

	if err := WriteBranchTip(museDir, "takes", "abc"); err != nil {
		t.Fatal(err)
	}
	deleted, err = DeleteRef(museDir, BranchRef("takes"))
	if err != nil || !deleted {
		t.Fatalf("DeleteRef = %v, %v", deleted, err)
	}
}

func TestListBranches(t *testing.T) {
	museDir := t.TempDir()
	for _, branch := range []string{"main", "feature/bridge", "alt-mix"} {
		if err := WriteBranchTip(museDir, branch, ""); err != nil {
			t.Fatal(err)
		}
	}

	branches, err := ListBranches(museDir)
	if err != nil {
		t.Fatalf("ListBranches failed: %v", err)
	}
	want := []string{"alt-mix", "feature/bridge", "main"}
	if len(branches) != len(want) {
		t.Fatalf("got %v, want %v", branches, want)
	}
	for i := range want {
		if branches[i] != want[i] {
			t.Fatalf("got %v, want %v", branches, want)
		}
	}
}
