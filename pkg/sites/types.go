// Package sites manages sites and their nested pages and sections. A
// site is the unit of ownership; pages belong to a site and sections to
// a page, and both inherit the site's owner for access decisions.
package sites

import (
	"strings"
	"time"

	"github.com/makersite/makersite/pkg/storage"
)

// Site represents a tenant website
type Site struct {
	ID          int64                  `json:"id"`
	UserID      int64                  `json:"user_id"`
	Name        string                 `json:"name"`
	Address     string                 `json:"address"`
	Slug        string                 `json:"slug"`
	Description string                 `json:"description,omitempty"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
	SEO         map[string]interface{} `json:"seo,omitempty"`
	Logo        *storage.FileRef       `json:"logo,omitempty"`
	Favicon     *storage.FileRef       `json:"favicon,omitempty"`
	Published   bool                   `json:"published"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	DeletedAt   *time.Time             `json:"-"`
}

// Page represents a page within a site
type Page struct {
	ID        int64      `json:"id"`
	SiteID    int64      `json:"site_id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Position  int        `json:"position"`
	Published bool       `json:"published"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Section represents a content block within a page
type Section struct {
	ID        int64                  `json:"id"`
	PageID    int64                  `json:"page_id"`
	Type      string                 `json:"type"`
	Content   map[string]interface{} `json:"content,omitempty"`
	Position  int                    `json:"position"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// SiteInput carries the fields accepted when creating or updating a site
type SiteInput struct {
	Name        string                 `json:"name"`
	Address     string                 `json:"address"`
	Description string                 `json:"description"`
	Settings    map[string]interface{} `json:"settings"`
	SEO         map[string]interface{} `json:"seo"`
	Logo        *storage.FileRef       `json:"logo"`
	Favicon     *storage.FileRef       `json:"favicon"`
	// UserID lets an admin create a site on behalf of another account.
	// Ignored for regular actors.
	UserID int64 `json:"user_id"`
}

// Validate checks the input and returns field-level messages
func (in SiteInput) Validate() map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "name is required"
	}
	if strings.TrimSpace(in.Address) == "" {
		details["address"] = "address is required"
	} else if strings.ContainsAny(in.Address, " /") {
		details["address"] = "address cannot contain spaces or slashes"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// PageInput carries the fields accepted when creating or updating a page
type PageInput struct {
	Title     string `json:"title"`
	Position  int    `json:"position"`
	Published bool   `json:"published"`
}

// Validate checks the input and returns field-level messages
func (in PageInput) Validate() map[string]string {
	if strings.TrimSpace(in.Title) == "" {
		return map[string]string{"title": "title is required"}
	}
	return nil
}

// SectionInput carries the fields accepted when creating or updating a
// section
type SectionInput struct {
	Type     string                 `json:"type"`
	Content  map[string]interface{} `json:"content"`
	Position int                    `json:"position"`
}

// sectionTypes whitelists the block types the renderer understands
var sectionTypes = map[string]bool{
	"hero":     true,
	"text":     true,
	"gallery":  true,
	"products": true,
	"courses":  true,
	"contact":  true,
	"custom":   true,
}

// Validate checks the input and returns field-level messages
func (in SectionInput) Validate() map[string]string {
	details := map[string]string{}
	if in.Type == "" {
		details["type"] = "type is required"
	} else if !sectionTypes[in.Type] {
		details["type"] = "unknown section type"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
