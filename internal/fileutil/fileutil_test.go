package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileVerified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.pdf")
	content := []byte("%PDF-1.7 fake")

	digest, err := WriteFileVerified(path, content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(content)
	if digest != hex.EncodeToString(sum[:]) {
		t.Fatalf("digest mismatch: got %s", digest)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestWriteFileVerified_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "source.png")
	if _, err := WriteFileVerified(path, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
