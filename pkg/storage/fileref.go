package storage

import (
	"encoding/json"
	"fmt"
)

// FileRef is the persisted reference to a stored file, kept as JSON in
// entity columns (site logos, product images, media records).
type FileRef struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// NewFileRef builds a reference from a stored file
func NewFileRef(stored *StoredFile, filename string) *FileRef {
	return &FileRef{
		URL:      stored.URL,
		Path:     stored.Path,
		Filename: filename,
		Size:     stored.Size,
	}
}

// EncodeFileRef marshals a reference for a JSON column; nil encodes to
// SQL NULL
func EncodeFileRef(r *FileRef) (interface{}, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal file reference: %w", err)
	}
	return data, nil
}

// DecodeFileRef unmarshals a JSON column; NULL decodes to nil
func DecodeFileRef(data []byte) (*FileRef, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r := &FileRef{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file reference: %w", err)
	}
	return r, nil
}
