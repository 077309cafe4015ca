package policy

// Role represents an actor's platform role
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

// Status represents an actor's account status
type Status string

const (
	StatusActive Status = "active"
	StatusBanned Status = "banned"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	ID     int64  `json:"id"`
	Role   Role   `json:"role"`
	Status Status `json:"status"`
}

// IsAdmin reports whether the actor has unrestricted scope
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsBanned reports whether the actor is blocked from mutations
func (a Actor) IsBanned() bool {
	return a.Status == StatusBanned
}

// Resource represents an entity type governed by the policy engine
type Resource string

const (
	ResourceUser       Resource = "user"
	ResourceSite       Resource = "site"
	ResourcePage       Resource = "page"
	ResourceSection    Resource = "section"
	ResourceProduct    Resource = "product"
	ResourceCourse     Resource = "course"
	ResourceLesson     Resource = "lesson"
	ResourceEnrollment Resource = "enrollment"
	ResourceMedia      Resource = "media"
)

// Action represents an operation on a resource
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionBan covers admin account-status mutations. Grouped with the
	// destructive actions for the self-targeting denial rule.
	ActionBan Action = "ban"
)

// IsMutation reports whether the action changes state
func (a Action) IsMutation() bool {
	return a != ActionView
}

// Ownership describes how a resource resolves to its owning actor.
// Direct resources carry an owner id column; the rest inherit ownership
// from a parent resource.
type Ownership struct {
	Direct bool
	Parent Resource
}

// ownershipRules is the fixed mapping from resource type to its
// owner-resolution strategy.
var ownershipRules = map[Resource]Ownership{
	ResourceUser:       {Direct: true},
	ResourceSite:       {Direct: true},
	ResourceProduct:    {Direct: true},
	ResourceCourse:     {Direct: true},
	ResourceMedia:      {Direct: true},
	ResourceEnrollment: {Direct: true},
	ResourcePage:       {Parent: ResourceSite},
	ResourceSection:    {Parent: ResourcePage},
	ResourceLesson:     {Parent: ResourceCourse},
}

// OwnershipOf returns the owner-resolution strategy for a resource
func OwnershipOf(r Resource) (Ownership, bool) {
	o, ok := ownershipRules[r]
	return o, ok
}

// Target identifies the entity a single-record action applies to
type Target struct {
	Resource Resource
	ID       int64
}

// Scope is the predicate defining which rows an actor may act upon.
// The zero value denies everything; use ScopeFor to build one.
type Scope struct {
	// All grants unrestricted access (admin actors)
	All bool
	// OwnerID restricts rows to a single resolved owner
	OwnerID int64
}

// Contains reports whether an entity with the given root owner falls
// inside the scope
func (s Scope) Contains(ownerID int64) bool {
	return s.All || s.OwnerID == ownerID
}
