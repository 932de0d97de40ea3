package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned when an object does not exist in its bucket
var ErrObjectNotFound = errors.New("object not found")

// BlobStore is the chunked object storage used for asset payloads.
// Every operation is scoped to a bucket so unrelated entity types never share a namespace.
type BlobStore interface {
	// Store writes data as one object and returns its id once it is durable
	Store(ctx context.Context, bucket string, data []byte, filename, contentType string) (string, error)

	// Open returns a forward-only reader for an object
	Open(ctx context.Context, bucket, objectID string) (*Object, error)

	// Delete removes an object; missing objects are ignored
	Delete(ctx context.Context, bucket, objectID string) error

	// List enumerates the objects of a bucket
	List(ctx context.Context, bucket string) ([]ObjectInfo, error)

	// HealthCheck verifies the backend is reachable
	HealthCheck(ctx context.Context) error
}

// Object is an opened object stream
type Object struct {
	Body        io.ReadCloser
	Size        int64 // -1 when unknown
	ContentType string
}

// ObjectInfo describes a listed object
type ObjectInfo struct {
	ID           string
	Size         int64
	LastModified time.Time
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Region     string // For S3 storage
	S3Endpoint   string // Custom endpoint (MinIO)
	S3PathStyle  bool
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new blob store based on configuration
func NewStorage(ctx context.Context, cfg StorageConfig) (BlobStore, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// newObjectID generates a unique object id that keeps the file extension for operators
func newObjectID(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// validateKey rejects object ids and bucket names that could escape their namespace
func validateKey(kind, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s is required", kind)
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid %s: %q", kind, key)
	}
	return nil
}
