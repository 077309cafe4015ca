// Package storage provides the file storage backends the mutation
// pipeline depends on for image and media lifecycle.
package storage

import (
	"context"
	"io"
)

// StoredFile describes a successfully stored file
type StoredFile struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// FileStore is the narrow interface the services depend on. Replacement
// uploads must call Store for the new file before the old path is
// deleted; Delete failures during replacement are treated as best-effort
// by callers.
type FileStore interface {
	// Store writes content under a directory prefix and returns its
	// location. The name is used as-is; callers are responsible for
	// making it unique.
	Store(ctx context.Context, prefix, name string, content io.Reader) (*StoredFile, error)

	// Delete removes a stored file by path. Deleting a missing file is
	// not an error.
	Delete(ctx context.Context, path string) error
}

// Config selects and configures a backend
type Config struct {
	// Type is "filesystem" or "s3"
	Type string

	// Filesystem config
	Root string
	// BaseURL is prepended to paths to form public URLs
	BaseURL string

	// S3 config
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// DefaultConfig returns a local filesystem configuration
func DefaultConfig() Config {
	return Config{
		Type:    "filesystem",
		Root:    "/var/lib/makersite/uploads",
		BaseURL: "/storage",
	}
}
