// Package archive packages a job output directory as a zip stream.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotDirectory reports a missing or non-directory source.
var ErrNotDirectory = errors.New("archive source is not a directory")

// WriteZip streams the full contents of dir to w as a zip archive with paths
// relative to dir. The directory is read, never modified.
func WriteZip(ctx context.Context, w io.Writer, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
		}
		return fmt.Errorf("stat archive source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	zw := zip.NewWriter(w)
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		entryInfo, err := entry.Info()
		if err != nil {
			return err
		}
		if entry.IsDir() {
			header, err := zip.FileInfoHeader(entryInfo)
			if err != nil {
				return err
			}
			header.Name = name + "/"
			_, err = zw.CreateHeader(header)
			return err
		}
		if !entryInfo.Mode().IsRegular() {
			return nil
		}
		return addFile(zw, path, name, entryInfo)
	})
	if walkErr != nil {
		_ = zw.Close()
		return fmt.Errorf("write archive: %w", walkErr)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}
