package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dotsocr/internal/filestore"
)

var _ filestore.Index = (*Store)(nil)

const fileColumns = `id, original_name, stored_path, dir, size_bytes, sha256, created_at`

// PutFile inserts or replaces a stored file record.
func (s *Store) PutFile(ctx context.Context, file *filestore.StoredFile) error {
	if file == nil {
		return errors.New("put file: nil record")
	}
	err := s.exec(ctx,
		`INSERT INTO stored_files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            original_name = excluded.original_name,
            stored_path = excluded.stored_path,
            dir = excluded.dir,
            size_bytes = excluded.size_bytes,
            sha256 = excluded.sha256`,
		file.ID,
		file.OriginalName,
		file.StoredPath,
		file.Dir,
		file.SizeBytes,
		nullableString(file.SHA256),
		requiredTime(file.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert stored file: %w", err)
	}
	return nil
}

// GetFile returns the record for id, or nil when unknown.
func (s *Store) GetFile(ctx context.Context, id string) (*filestore.StoredFile, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+fileColumns+` FROM stored_files WHERE id = ?`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stored file: %w", err)
	}
	return file, nil
}

// ListFiles returns all stored files in insertion order.
func (s *Store) ListFiles(ctx context.Context) ([]*filestore.StoredFile, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+fileColumns+` FROM stored_files ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list stored files: %w", err)
	}
	defer rows.Close()

	var files []*filestore.StoredFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stored file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored files: %w", err)
	}
	return files, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*filestore.StoredFile, error) {
	var (
		file      filestore.StoredFile
		sha       sql.NullString
		createdAt sql.NullString
	)
	if err := row.Scan(
		&file.ID,
		&file.OriginalName,
		&file.StoredPath,
		&file.Dir,
		&file.SizeBytes,
		&sha,
		&createdAt,
	); err != nil {
		return nil, err
	}
	file.SHA256 = sha.String
	file.CreatedAt = parseTime(createdAt)
	return &file, nil
}
