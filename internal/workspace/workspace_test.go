package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dotsocr/internal/workspace"
)

func TestAllocateCreatesUniqueDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "results")
	alloc := workspace.NewAllocator(root)

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		id, dir, err := alloc.Allocate()
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if !workspace.ValidID(id) {
			t.Fatalf("generated id %q is not valid", id)
		}
		if dir != filepath.Join(root, id) {
			t.Fatalf("unexpected dir %q for id %q", dir, id)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	alloc := workspace.NewAllocator(t.TempDir())
	for _, id := range []string{"", "../etc", "ABCDEF0123456789ABCDEF0123456789", "0123456789abcdef0123456789abcde/"} {
		if _, err := alloc.Resolve(id); !errors.Is(err, workspace.ErrInvalidID) {
			t.Fatalf("Resolve(%q) error = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestReleaseRemovesDirectory(t *testing.T) {
	alloc := workspace.NewAllocator(t.TempDir())
	id, dir, err := alloc.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "partial"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := alloc.Release(id); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected directory removed, stat err = %v", err)
	}
	if err := alloc.Release(id); err != nil {
		t.Fatalf("second Release should be a no-op: %v", err)
	}
}
