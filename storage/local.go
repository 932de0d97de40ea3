package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements BlobStore on the local filesystem.
// Each bucket is a directory below basePath.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("local storage path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: abs,
	}, nil
}

// Store writes data to a temp file and renames it into place
func (s *LocalStorage) Store(ctx context.Context, bucket string, data []byte, filename, contentType string) (string, error) {
	if err := validateKey("bucket", bucket); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.basePath, bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	objectID := newObjectID(filename)
	if err := os.Rename(tmpPath, filepath.Join(dir, objectID)); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to commit file: %w", err)
	}
	return objectID, nil
}

// Open opens an object for reading
func (s *LocalStorage) Open(ctx context.Context, bucket, objectID string) (*Object, error) {
	fullPath, err := s.objectPath(bucket, objectID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, objectID)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &Object{Body: file, Size: info.Size()}, nil
}

// Delete removes an object from local storage
func (s *LocalStorage) Delete(ctx context.Context, bucket, objectID string) error {
	fullPath, err := s.objectPath(bucket, objectID)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// List returns the committed objects of a bucket
func (s *LocalStorage) List(ctx context.Context, bucket string) ([]ObjectInfo, error) {
	if err := validateKey("bucket", bucket); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.basePath, bucket))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list bucket: %w", err)
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".put-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		objects = append(objects, ObjectInfo{ID: entry.Name(), Size: info.Size(), LastModified: info.ModTime()})
	}
	return objects, nil
}

// HealthCheck verifies the base directory is still accessible
func (s *LocalStorage) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(s.basePath); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

func (s *LocalStorage) objectPath(bucket, objectID string) (string, error) {
	if err := validateKey("bucket", bucket); err != nil {
		return "", err
	}
	if err := validateKey("object id", objectID); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, bucket, objectID), nil
}

// LegacyFiles serves assets of the first storage generation, plain files below an uploads directory
type LegacyFiles struct {
	root string
}

// NewLegacyFiles creates a reader rooted at the legacy uploads directory
func NewLegacyFiles(root string) *LegacyFiles {
	return &LegacyFiles{root: root}
}

// OpenLegacy opens a file by its path relative to the uploads directory
func (l *LegacyFiles) OpenLegacy(ctx context.Context, relPath string) (*Object, error) {
	if l == nil || l.root == "" {
		return nil, fmt.Errorf("%w: legacy uploads are not configured", ErrObjectNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(relPath)))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("invalid legacy path: %q", relPath)
	}

	file, err := os.Open(filepath.Join(l.root, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, relPath)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, relPath)
	}
	return &Object{Body: file, Size: info.Size()}, nil
}
