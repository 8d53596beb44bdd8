package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BlobStore is the attachment blob port: opaque files keyed by generated
// filenames.
type BlobStore interface {
	// Save writes src under the given filename and returns the stored path.
	Save(ctx context.Context, filename string, src io.Reader) (string, error)
	Open(filename string) (io.ReadCloser, error)
	Remove(filename string) error
	Exists(filename string) bool
	Path(filename string) string
}

// DiskStore persists blobs on the local filesystem.
type DiskStore struct {
	dir string
}

// NewDiskStore builds a store rooted at dir, creating it when absent.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// GenerateFilename produces a unique storage key preserving the original
// extension.
func GenerateFilename(fieldName, originalName string) string {
	ext := filepath.Ext(originalName)
	return fmt.Sprintf("%s-%s%s", fieldName, uuid.NewString(), ext)
}

func (s *DiskStore) Save(ctx context.Context, filename string, src io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.Path(filename)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *DiskStore) Open(filename string) (io.ReadCloser, error) {
	return os.Open(s.Path(filename))
}

// Remove deletes the blob. A missing blob is reported via os.ErrNotExist so
// callers can tolerate it.
func (s *DiskStore) Remove(filename string) error {
	return os.Remove(s.Path(filename))
}

func (s *DiskStore) Exists(filename string) bool {
	info, err := os.Stat(s.Path(filename))
	return err == nil && !info.IsDir()
}

// Path resolves the filename inside the store root. The base name is taken
// so a crafted filename cannot escape the directory.
func (s *DiskStore) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}
