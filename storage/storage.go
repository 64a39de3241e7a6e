package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage archives uploaded spreadsheets so an ingest can be audited or
// re-run later.
type Storage interface {
	// Archive stores an uploaded file under the project and returns the
	// storage path.
	Archive(ctx context.Context, projectID, filename string, data io.Reader) (string, error)

	// Open retrieves an archived file by storage path.
	Open(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Remove deletes an archived file by storage path.
	Remove(ctx context.Context, storagePath string) error
}

// Type selects the storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config holds the storage settings.
type Config struct {
	Type      Type
	LocalPath string

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// New creates a storage backend from config.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	case TypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("s3 storage requires a bucket")
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// archivePath builds a unique per-upload path:
// {project_id}/{upload_id}_{sanitized_name}{ext}. Uploads keep their
// original name for traceability but never collide.
func archivePath(projectID, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.ReplaceAll(base, "/", "_")
	base = strings.ReplaceAll(base, "\\", "_")

	return fmt.Sprintf("%s/%s_%s%s", projectID, uuid.New().String(), base, ext)
}
