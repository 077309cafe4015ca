// Package users manages platform accounts: the admin-facing CRUD,
// account status changes and the actor identity other packages consume.
package users

import (
	"strings"
	"time"

	"github.com/makersite/makersite/pkg/policy"
)

// User represents a platform account
type User struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         policy.Role   `json:"role"`
	Status       policy.Status `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	DeletedAt    *time.Time    `json:"-"`
}

// Actor returns the policy identity for this account
func (u *User) Actor() policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role, Status: u.Status}
}

// CreateInput carries the fields accepted when creating an account
type CreateInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     policy.Role `json:"role"`
}

// UpdateInput carries the fields accepted when updating an account.
// Nil pointers leave the current value untouched.
type UpdateInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Validate checks the input and returns field-level messages
func (in CreateInput) Validate() map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "name is required"
	}
	if !validEmail(in.Email) {
		details["email"] = "a valid email address is required"
	}
	if len(in.Password) < 8 {
		details["password"] = "password must be at least 8 characters"
	}
	if in.Role != "" && in.Role != policy.RoleRegular && in.Role != policy.RoleAdmin {
		details["role"] = "role must be regular or admin"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// Validate checks the input and returns field-level messages
func (in UpdateInput) Validate() map[string]string {
	details := map[string]string{}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		details["name"] = "name cannot be empty"
	}
	if in.Email != nil && !validEmail(*in.Email) {
		details["email"] = "a valid email address is required"
	}
	if in.Password != nil && len(*in.Password) < 8 {
		details["password"] = "password must be at least 8 characters"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// validEmail applies a minimal shape check; deliverability is not our
// problem at this layer.
func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
