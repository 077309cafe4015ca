package auth

import "time"

// APIToken is the stored record of an issued token. The plaintext is
// never persisted; TokenHash is the SHA256 of the full token string.
type APIToken struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the token is past its expiry
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// Revoked reports whether the token has been revoked
func (t *APIToken) Revoked() bool {
	return t.RevokedAt != nil
}

// CreateTokenInput describes a token creation request
type CreateTokenInput struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Validate checks the input and returns field errors
func (in *CreateTokenInput) Validate() map[string]string {
	details := make(map[string]string)
	if in.Name == "" {
		details["name"] = "name is required"
	}
	if len(in.Name) > 255 {
		details["name"] = "name must be at most 255 characters"
	}
	if in.ExpiresAt != nil && in.ExpiresAt.Before(time.Now()) {
		details["expires_at"] = "expiry must be in the future"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
