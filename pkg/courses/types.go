// Package courses manages courses, their lessons and student
// enrollments. Lessons inherit the course's owner for access decisions;
// enrollments belong to the enrolled student.
package courses

import (
	"strings"
	"time"

	"github.com/makersite/makersite/pkg/storage"
)

// Pricing models, shared with the product catalog semantics
const (
	PriceTypeFixed      = 1
	PriceTypePayWhatYou = 2
	PriceTypeFree       = 3
)

// Course represents a sellable course
type Course struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	SiteID      *int64           `json:"site_id,omitempty"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	Price       int64            `json:"price"`
	PriceType   int              `json:"price_type"`
	FeaturedImg *storage.FileRef `json:"featured_img,omitempty"`
	Published   bool             `json:"published"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"-"`
}

// Lesson represents a unit of course content
type Lesson struct {
	ID        int64      `json:"id"`
	CourseID  int64      `json:"course_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	VideoURL  string     `json:"video_url,omitempty"`
	// Duration is in seconds
	Duration  int        `json:"duration"`
	Position  int        `json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Enrollment links a student to a course
type Enrollment struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	CourseID         int64     `json:"course_id"`
	EnrolledAt       time.Time `json:"enrolled_at"`
	CompletedLessons []int64   `json:"completed_lessons"`
	// Progress is the completed share of the course's lessons, 0-100
	Progress int `json:"progress"`
}

// CourseInput carries the fields accepted when creating or updating a
// course
type CourseInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       int64            `json:"price"`
	PriceType   int              `json:"price_type"`
	SiteID      *int64           `json:"site_id"`
	FeaturedImg *storage.FileRef `json:"featured_img"`
	Published   bool             `json:"published"`
	// UserID lets an admin create a course on behalf of another account
	UserID int64 `json:"user_id"`
}

// Validate checks the input and returns field-level messages
func (in CourseInput) Validate() map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "name is required"
	}
	switch in.PriceType {
	case PriceTypeFixed:
		if in.Price <= 0 {
			details["price"] = "fixed-price courses need a positive price"
		}
	case PriceTypePayWhatYou:
		if in.Price < 0 {
			details["price"] = "minimum price cannot be negative"
		}
	case PriceTypeFree:
		if in.Price != 0 {
			details["price"] = "free courses cannot have a price"
		}
	default:
		details["price_type"] = "price_type must be 1 (fixed), 2 (pay what you want) or 3 (free)"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// LessonInput carries the fields accepted when creating or updating a
// lesson
type LessonInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	VideoURL string `json:"video_url"`
	Duration int    `json:"duration"`
	Position int    `json:"position"`
}

// Validate checks the input and returns field-level messages
func (in LessonInput) Validate() map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		details["title"] = "title is required"
	}
	if in.Duration < 0 {
		details["duration"] = "duration cannot be negative"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
