package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystemStore implements FileStore on the local filesystem
type FileSystemStore struct {
	root    string
	baseURL string
}

// NewFileSystemStore creates a filesystem-backed store rooted at root
func NewFileSystemStore(root, baseURL string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FileSystemStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Store implements FileStore.Store
func (s *FileSystemStore) Store(_ context.Context, prefix, name string, content io.Reader) (*StoredFile, error) {
	rel := path.Join(cleanSegment(prefix), cleanSegment(name))
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, content)
	if err != nil {
		os.Remove(full)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &StoredFile{
		Path: rel,
		URL:  s.baseURL + "/" + rel,
		Size: size,
	}, nil
}

// Delete implements FileStore.Delete
func (s *FileSystemStore) Delete(_ context.Context, p string) error {
	rel := cleanSegment(p)
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// cleanSegment normalizes a path segment and strips traversal attempts
func cleanSegment(segment string) string {
	cleaned := path.Clean("/" + strings.ReplaceAll(segment, "\\", "/"))
	return strings.TrimPrefix(cleaned, "/")
}
