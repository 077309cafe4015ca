package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
)

// listSpec shapes admin user listings
var listSpec = query.Spec{
	IDColumn:      "id",
	OwnerColumn:   "id",
	DeletedColumn: "deleted_at",
	SearchColumns: []string{"name", "email"},
	FilterColumns: map[string]string{"role": "role", "status": "status"},
	SortColumns:   map[string]string{"name": "name", "email": "email", "created_at": "created_at"},
	DefaultSort:   "created_at",
}

// Service implements account operations with policy enforcement
type Service struct {
	store  Store
	engine *policy.Engine
	logger *observability.Logger
}

// NewService creates a user service
func NewService(store Store, engine *policy.Engine, logger *observability.Logger) *Service {
	return &Service{store: store, engine: engine, logger: logger}
}

// List returns a page of accounts. Admin only.
func (s *Service) List(ctx context.Context, actor policy.Actor, params query.Params) (query.Page[*User], error) {
	if !actor.IsAdmin() {
		return query.Page[*User]{}, errs.AccessDenied("")
	}
	clause := listSpec.Shape(policy.Scope{All: true}, params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*User]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// Get returns a single account: an actor's own, or any for admins.
// Other accounts are reported as missing, not forbidden.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (*User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, errs.NotFound("user")
	}
	return s.store.GetByID(ctx, id)
}

// Create registers a new account. Admin only.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*User, error) {
	if err := s.engine.AuthorizeCreate(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, errs.AccessDenied("")
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	if existing, err := s.store.GetByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, errs.Conflict("email is already in use")
	} else if err != nil && !errs.IsNotFound(err) {
		return nil, errs.Internal(err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, errs.Internal(err)
	}

	role := in.Role
	if role == "" {
		role = policy.RoleRegular
	}
	user := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       policy.StatusActive,
	}
	if err := s.store.Insert(ctx, user); err != nil {
		return nil, errs.Internal(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"actor_id": actor.ID,
	}).Info("user created")
	return user, nil
}

// Update changes account fields: an actor's own, or any for admins
func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, in UpdateInput) (*User, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceUser, ID: id}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil && *in.Email != user.Email {
		if existing, err := s.store.GetByEmail(ctx, *in.Email); err == nil && existing != nil {
			return nil, errs.Conflict("email is already in use")
		} else if err != nil && !errs.IsNotFound(err) {
			return nil, errs.Internal(err)
		}
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, errs.Internal(err)
		}
		user.PasswordHash = hash
	}

	if err := s.store.Update(ctx, user); err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}
	return user, nil
}

// Delete soft-deletes an account. Admin only, and never the admin's own.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{Resource: policy.ResourceUser, ID: id}); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return errs.AccessDenied("")
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.engine.Invalidate(policy.ResourceUser, id)
	s.logger.WithFields(map[string]interface{}{
		"user_id":  id,
		"actor_id": actor.ID,
	}).Info("user deleted")
	return nil
}

// Ban blocks an account from all mutations. Admin only, never self.
func (s *Service) Ban(ctx context.Context, actor policy.Actor, id int64) error {
	return s.setStatus(ctx, actor, id, policy.StatusBanned)
}

// Unban restores a banned account. Admin only.
func (s *Service) Unban(ctx context.Context, actor policy.Actor, id int64) error {
	return s.setStatus(ctx, actor, id, policy.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, actor policy.Actor, id int64, status policy.Status) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionBan, policy.Target{Resource: policy.ResourceUser, ID: id}); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return errs.AccessDenied("")
	}
	if err := s.store.SetStatus(ctx, id, string(status)); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.logger.WithFields(map[string]interface{}{
		"user_id":  id,
		"actor_id": actor.ID,
		"status":   string(status),
	}).Info("user status changed")
	return nil
}

// Stats returns account counts by status for the admin dashboard
func (s *Service) Stats(ctx context.Context, actor policy.Actor) (map[string]int64, error) {
	if !actor.IsAdmin() {
		return nil, errs.AccessDenied("admin access required")
	}
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return counts, nil
}

// VerifyPassword checks a candidate password against an account
func VerifyPassword(user *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
