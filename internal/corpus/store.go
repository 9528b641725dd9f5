package corpus

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/errors"
)

// Store persists the normalized corpus under an identifier.
type Store interface {
	Read(ctx context.Context, id string) (string, error)
	Write(ctx context.Context, id string, text string) error
}

// FileStore keeps each corpus as a flat UTF-8 file; the identifier is the path.
type FileStore struct{}

// Read fails with ErrNotFound when the file is missing or empty and ErrIO
// for any other read error.
func (FileStore) Read(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", apperrors.Newf(apperrors.ErrNotFound, 0, "no cached corpus at %s", path)
	}
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrIO, 0, "reading %s: %v", path, err)
	}
	if len(data) == 0 {
		return "", apperrors.Newf(apperrors.ErrNotFound, 0, "cached corpus at %s is empty", path)
	}
	return string(data), nil
}

// Write replaces the file atomically via a temp file and rename.
func (FileStore) Write(_ context.Context, path string, text string) error {
	if path == "" {
		return apperrors.New(apperrors.ErrIO, 0, "no cache path configured")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Newf(apperrors.ErrIO, 0, "creating %s: %v", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".corpus-*.tmp")
	if err != nil {
		return apperrors.Newf(apperrors.ErrIO, 0, "creating temp file in %s: %v", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return apperrors.Newf(apperrors.ErrIO, 0, "writing %s: %v", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Newf(apperrors.ErrIO, 0, "closing %s: %v", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.Newf(apperrors.ErrIO, 0, "renaming into %s: %v", path, err)
	}
	return nil
}
