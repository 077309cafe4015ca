package auth

import (
	"context"
	"strings"
	"time"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/users"
)

// Identity is the result of authenticating a request. User is the
// account the request acts as. ImpersonatedBy is the admin id when the
// credential was an impersonation token, zero otherwise.
type Identity struct {
	User           *users.User
	ImpersonatedBy int64
}

// Service manages API tokens and authenticates requests
type Service struct {
	store  Store
	users  users.Store
	engine *policy.Engine
	imp    *Impersonator
	logger *observability.Logger
}

// NewService creates the auth service
func NewService(store Store, userStore users.Store, engine *policy.Engine, imp *Impersonator, logger *observability.Logger) *Service {
	return &Service{store: store, users: userStore, engine: engine, imp: imp, logger: logger}
}

// CreateToken issues a new API token for the actor. The plaintext token
// is returned exactly once alongside the stored record.
func (s *Service) CreateToken(ctx context.Context, actor policy.Actor, input CreateTokenInput) (*APIToken, string, error) {
	if err := s.engine.AuthorizeCreate(actor); err != nil {
		return nil, "", err
	}
	if details := input.Validate(); details != nil {
		return nil, "", errs.Validation(details)
	}

	plaintext, hash, prefix, err := GenerateToken()
	if err != nil {
		return nil, "", errs.Internal(err)
	}

	token := &APIToken{
		UserID:      actor.ID,
		TokenHash:   hash,
		TokenPrefix: prefix,
		Name:        input.Name,
		ExpiresAt:   input.ExpiresAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, token); err != nil {
		return nil, "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"token_id": token.ID,
		"user_id":  actor.ID,
	}).Info("api token created")
	return token, plaintext, nil
}

// ListTokens returns the actor's own tokens, revoked ones included
func (s *Service) ListTokens(ctx context.Context, actor policy.Actor) ([]*APIToken, error) {
	return s.store.ListByUser(ctx, actor.ID)
}

// RevokeToken permanently revokes a token. Owners and admins only;
// anyone else sees the token as missing.
func (s *Service) RevokeToken(ctx context.Context, actor policy.Actor, id int64) error {
	token, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if token.UserID != actor.ID && !actor.IsAdmin() {
		return errs.NotFound("token not found")
	}
	if actor.IsBanned() {
		return errs.AccessDenied("account is banned")
	}
	return s.store.Revoke(ctx, id, time.Now().UTC())
}

// Authenticate resolves a bearer credential to an identity. Opaque
// tokens and impersonation JWTs are both accepted; every failure mode
// collapses to the same denial so credentials cannot be probed.
func (s *Service) Authenticate(ctx context.Context, credential string) (*Identity, error) {
	if strings.HasPrefix(credential, TokenPrefix) {
		return s.authenticateOpaque(ctx, credential)
	}
	if s.imp != nil {
		return s.authenticateImpersonation(ctx, credential)
	}
	return nil, errs.AccessDenied("invalid credentials")
}

func (s *Service) authenticateOpaque(ctx context.Context, credential string) (*Identity, error) {
	if err := ValidateTokenFormat(credential); err != nil {
		return nil, errs.AccessDenied("invalid credentials")
	}

	token, err := s.store.GetByHash(ctx, HashToken(credential))
	if err != nil {
		return nil, errs.AccessDenied("invalid credentials")
	}
	if token.Revoked() || token.Expired(time.Now()) {
		return nil, errs.AccessDenied("invalid credentials")
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, errs.AccessDenied("invalid credentials")
	}

	// Best effort; a failed touch must not reject the request
	if err := s.store.TouchLastUsed(ctx, token.ID, time.Now().UTC()); err != nil {
		s.logger.WithError(err).WithField("token_id", token.ID).Warn("failed to update token last_used_at")
	}

	return &Identity{User: user}, nil
}

func (s *Service) authenticateImpersonation(ctx context.Context, credential string) (*Identity, error) {
	targetID, adminID, err := s.imp.Verify(credential)
	if err != nil {
		return nil, errs.AccessDenied("invalid credentials")
	}

	// The issuing admin must still hold the admin role; a demoted or
	// deleted admin's outstanding tokens stop working immediately.
	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil || !admin.Actor().IsAdmin() {
		return nil, errs.AccessDenied("invalid credentials")
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, errs.AccessDenied("invalid credentials")
	}

	return &Identity{User: target, ImpersonatedBy: adminID}, nil
}

// Impersonate issues a short-lived token acting as the target user.
// Admins only, and never for another admin account.
func (s *Service) Impersonate(ctx context.Context, actor policy.Actor, targetID int64) (string, time.Time, error) {
	if !actor.IsAdmin() {
		return "", time.Time{}, errs.AccessDenied("admin access required")
	}
	if actor.IsBanned() {
		return "", time.Time{}, errs.AccessDenied("account is banned")
	}
	if targetID == actor.ID {
		return "", time.Time{}, errs.Validation(map[string]string{"user_id": "cannot impersonate yourself"})
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return "", time.Time{}, err
	}
	if target.Actor().IsAdmin() {
		return "", time.Time{}, errs.AccessDenied("cannot impersonate an administrator")
	}

	token, expiresAt, err := s.imp.Issue(actor.ID, targetID)
	if err != nil {
		return "", time.Time{}, errs.Internal(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"admin_id":  actor.ID,
		"target_id": targetID,
	}).Info("impersonation token issued")
	return token, expiresAt, nil
}
