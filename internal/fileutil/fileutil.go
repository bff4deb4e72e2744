package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// WriteFileVerified writes data to path, fsyncs it, and re-reads the file to
// confirm size and SHA256 match. The file is removed on mismatch. The returned
// string is the hex SHA256 of the written content.
func WriteFileVerified(path string, data []byte, mode os.FileMode) (string, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return "", err
	}
	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, hasher), bytes.NewReader(data))
	if err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("sync %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	if written != int64(len(data)) {
		_ = os.Remove(path)
		return "", fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", len(data), written)
	}
	want := hasher.Sum(nil)

	got, size, err := hashFile(path)
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	if size != int64(len(data)) {
		_ = os.Remove(path)
		return "", fmt.Errorf("write size mismatch: expected %d bytes, found %d bytes", len(data), size)
	}
	if !bytes.Equal(want, got) {
		_ = os.Remove(path)
		return "", fmt.Errorf("write hash mismatch: file corrupted during write")
	}
	return hex.EncodeToString(want), nil
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return nil, 0, fmt.Errorf("verify %s: %w", path, err)
	}
	return hasher.Sum(nil), n, nil
}
