package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dotsocr/internal/fileutil"
	"dotsocr/internal/logging"
	"dotsocr/internal/textutil"
	"dotsocr/internal/workspace"
)

// SourceStem is the base name of the persisted upload inside its directory.
const SourceStem = "source"

// ErrEmptyContent reports an upload without any bytes.
var ErrEmptyContent = errors.New("uploaded file is empty")

// StoredFile describes a persisted upload. ID and StoredPath never change once
// the record exists.
type StoredFile struct {
	ID           string
	OriginalName string
	StoredPath   string
	Dir          string
	SizeBytes    int64
	SHA256       string
	CreatedAt    time.Time
}

// Extension returns the lowercased extension inferred from the original name.
func (f *StoredFile) Extension() string {
	if f == nil {
		return ""
	}
	return textutil.SanitizeExtension(f.OriginalName)
}

// Index stores file metadata. Get returns nil, nil for unknown identifiers.
type Index interface {
	PutFile(ctx context.Context, file *StoredFile) error
	GetFile(ctx context.Context, id string) (*StoredFile, error)
	ListFiles(ctx context.Context) ([]*StoredFile, error)
}

// Store saves uploads to disk and answers lookups.
type Store struct {
	alloc  *workspace.Allocator
	index  Index
	logger *slog.Logger
}

// New constructs a store rooted at root. A nil index selects the in-memory index.
func New(root string, index Index, logger *slog.Logger) *Store {
	if index == nil {
		index = NewMemoryIndex()
	}
	return &Store{
		alloc:  workspace.NewAllocator(root),
		index:  index,
		logger: logging.NewComponentLogger(logger, "filestore"),
	}
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.alloc.Root
}

// Save persists content under a fresh identifier.
func (s *Store) Save(ctx context.Context, originalName string, content []byte) (*StoredFile, error) {
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	name := textutil.DisplayName(originalName)
	if name == "" {
		name = "upload"
	}

	id, dir, err := s.alloc.Allocate()
	if err != nil {
		return nil, fmt.Errorf("allocate file directory: %w", err)
	}
	storedPath := filepath.Join(dir, SourceStem+textutil.SanitizeExtension(name))

	digest, err := fileutil.WriteFileVerified(storedPath, content, 0o644)
	if err != nil {
		_ = s.alloc.Release(id)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	record := &StoredFile{
		ID:           id,
		OriginalName: name,
		StoredPath:   storedPath,
		Dir:          dir,
		SizeBytes:    int64(len(content)),
		SHA256:       digest,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.index.PutFile(ctx, record); err != nil {
		_ = s.alloc.Release(id)
		return nil, fmt.Errorf("index upload: %w", err)
	}

	s.logger.Info("file stored",
		logging.FileID(id),
		logging.String("filename", name),
		logging.Int64("size_bytes", record.SizeBytes),
	)
	clone := *record
	return &clone, nil
}

// List returns known files in insertion order.
func (s *Store) List(ctx context.Context) ([]*StoredFile, error) {
	return s.index.ListFiles(ctx)
}

// Get returns the record for id, or nil when the identifier is unknown or its
// backing file no longer exists.
func (s *Store) Get(ctx context.Context, id string) (*StoredFile, error) {
	if !workspace.ValidID(id) {
		return nil, nil
	}
	record, err := s.index.GetFile(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	info, err := os.Stat(record.StoredPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("stored file missing on disk", logging.FileID(id), logging.String("path", record.StoredPath))
			return nil, nil
		}
		return nil, fmt.Errorf("stat stored file: %w", err)
	}
	if info.IsDir() {
		return nil, nil
	}
	return record, nil
}

// Open returns the record and an open handle to its content. Both are nil when
// the file is absent. Callers close the handle.
func (s *Store) Open(ctx context.Context, id string) (*StoredFile, *os.File, error) {
	record, err := s.Get(ctx, id)
	if err != nil || record == nil {
		return nil, nil, err
	}
	f, err := os.Open(record.StoredPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	return record, f, nil
}
