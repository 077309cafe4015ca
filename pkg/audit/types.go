// Package audit records administrative and destructive actions in a
// queryable database trail.
package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	// Admin account events
	EventTypeUserCreate EventType = "admin.user_create"
	EventTypeUserUpdate EventType = "admin.user_update"
	EventTypeUserDelete EventType = "admin.user_delete"
	EventTypeUserBan    EventType = "admin.user_ban"
	EventTypeUserUnban  EventType = "admin.user_unban"

	// Impersonation events
	EventTypeImpersonateStart EventType = "admin.impersonate_start"

	// Destructive content events
	EventTypeSiteDelete    EventType = "content.site_delete"
	EventTypeProductDelete EventType = "content.product_delete"
	EventTypeCourseDelete  EventType = "content.course_delete"
	EventTypeMediaDelete   EventType = "content.media_delete"

	// Access events
	EventTypeAccessDenied EventType = "access.denied"
)

// Event is one recorded action
type Event struct {
	ID        int64                  `json:"id"`
	Type      EventType              `json:"type"`
	ActorID   int64                  `json:"actor_id"`
	TargetID  *int64                 `json:"target_id,omitempty"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SearchFilter narrows audit trail queries
type SearchFilter struct {
	Type    EventType
	ActorID int64
	Since   *time.Time
	Until   *time.Time
	Limit   int
}
