// Package workspace owns the per-identifier directory policy shared by the file
// store and the job manager: every stored file and every job receives a fresh
// random identifier and an exclusive directory named after it under a root.
package workspace

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// IDLength is the number of hex characters in a generated identifier.
const IDLength = 32

// ErrInvalidID reports an identifier that could not have been produced by NewID.
var ErrInvalidID = errors.New("invalid identifier")

// NewID returns a 128-bit random identifier rendered as 32 lowercase hex characters.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// ValidID reports whether id has the shape produced by NewID.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// Allocator hands out exclusive directories beneath Root.
type Allocator struct {
	Root string
}

// NewAllocator constructs an allocator rooted at root.
func NewAllocator(root string) *Allocator {
	return &Allocator{Root: root}
}

// Allocate creates a fresh identifier and its directory. An existing directory
// is never reused.
func (a *Allocator) Allocate() (string, string, error) {
	if a == nil || strings.TrimSpace(a.Root) == "" {
		return "", "", errors.New("workspace root not configured")
	}
	if err := os.MkdirAll(a.Root, 0o755); err != nil {
		return "", "", fmt.Errorf("ensure workspace root: %w", err)
	}
	for attempt := 0; attempt < 3; attempt++ {
		id := NewID()
		dir := filepath.Join(a.Root, id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return id, dir, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return "", "", fmt.Errorf("create workspace %s: %w", id, err)
	}
	return "", "", errors.New("allocate workspace: identifier collision")
}

// Resolve returns the directory for id without touching the filesystem.
func (a *Allocator) Resolve(id string) (string, error) {
	if !ValidID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(a.Root, id), nil
}

// Release removes the directory for id. Missing directories are not an error.
func (a *Allocator) Release(id string) error {
	dir, err := a.Resolve(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("release workspace %s: %w", id, err)
	}
	return nil
}
