// Package media manages the upload library: storing files through the
// configured backend and tracking them as owned records.
package media

import (
	"path/filepath"
	"strings"
	"time"
)

// Media represents an uploaded file owned by an account
type Media struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"original_name"`
	Path         string     `json:"path"`
	URL          string     `json:"url"`
	Size         int64      `json:"size"`
	MimeType     string     `json:"mime_type"`
	Tags         []string   `json:"tags"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

// allowedExtensions bounds what the library accepts. Uploads are served
// back verbatim, so executable or page content stays out.
var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".pdf": true, ".mp4": true, ".webm": true,
	".mp3": true, ".wav": true, ".zip": true, ".txt": true, ".csv": true,
}

// validateUpload checks an upload's name and declared type
func validateUpload(originalName string) map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(originalName) == "" {
		details["file"] = "a file is required"
		return details
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		details["file"] = "file type is not allowed"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
