package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/users"
)

type fakeTokenStore struct {
	tokens map[int64]*APIToken
	nextID int64
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[int64]*APIToken), nextID: 1}
}

func (f *fakeTokenStore) Insert(_ context.Context, token *APIToken) error {
	token.ID = f.nextID
	f.nextID++
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *fakeTokenStore) GetByHash(_ context.Context, hash string) (*APIToken, error) {
	for _, t := range f.tokens {
		if t.TokenHash == hash {
			copied := *t
			return &copied, nil
		}
	}
	return nil, errs.NotFound("token not found")
}

func (f *fakeTokenStore) GetByID(_ context.Context, id int64) (*APIToken, error) {
	t, ok := f.tokens[id]
	if !ok {
		return nil, errs.NotFound("token not found")
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTokenStore) ListByUser(_ context.Context, userID int64) ([]*APIToken, error) {
	var out []*APIToken
	for _, t := range f.tokens {
		if t.UserID == userID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeTokenStore) TouchLastUsed(_ context.Context, id int64, at time.Time) error {
	if t, ok := f.tokens[id]; ok {
		t.LastUsedAt = &at
	}
	return nil
}

func (f *fakeTokenStore) Revoke(_ context.Context, id int64, at time.Time) error {
	t, ok := f.tokens[id]
	if !ok || t.RevokedAt != nil {
		return errs.NotFound("token not found")
	}
	t.RevokedAt = &at
	return nil
}

func (f *fakeTokenStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var deleted int64
	for id, t := range f.tokens {
		if t.ExpiresAt != nil && t.ExpiresAt.Before(before) {
			delete(f.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeUserStore struct {
	users map[int64]*users.User
}

func (f *fakeUserStore) Insert(context.Context, *users.User) error { return nil }

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*users.User, error) {
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, errs.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeUserStore) GetByEmail(context.Context, string) (*users.User, error) {
	return nil, errs.NotFound("user not found")
}

func (f *fakeUserStore) List(context.Context, query.Clause) ([]*users.User, int64, error) {
	return nil, 0, nil
}

func (f *fakeUserStore) Update(context.Context, *users.User) error      { return nil }
func (f *fakeUserStore) SetStatus(context.Context, int64, string) error { return nil }
func (f *fakeUserStore) SoftDelete(context.Context, int64) error        { return nil }
func (f *fakeUserStore) CountByStatus(context.Context) (map[string]int64, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *fakeTokenStore, *fakeUserStore) {
	t.Helper()
	tokens := newFakeTokenStore()
	accounts := &fakeUserStore{users: map[int64]*users.User{
		1:   {ID: 1, Name: "Admin", Role: policy.RoleAdmin, Status: policy.StatusActive},
		2:   {ID: 2, Name: "Other Admin", Role: policy.RoleAdmin, Status: policy.StatusActive},
		100: {ID: 100, Name: "Maker", Role: policy.RoleRegular, Status: policy.StatusActive},
		101: {ID: 101, Name: "Banned", Role: policy.RoleRegular, Status: policy.StatusBanned},
	}}
	svc := NewService(tokens, accounts, policy.NewEngine(nil, 0),
		NewImpersonator("test-secret", 15*time.Minute), observability.NopLogger())
	return svc, tokens, accounts
}

func actorFor(u *users.User) policy.Actor { return u.Actor() }

func TestCreateAndAuthenticateToken(t *testing.T) {
	svc, _, accounts := newTestService(t)
	ctx := context.Background()
	maker := actorFor(accounts.users[100])

	token, plaintext, err := svc.CreateToken(ctx, maker, CreateTokenInput{Name: "cli"})
	require.NoError(t, err)
	assert.NotEmpty(t, plaintext)
	assert.NotEmpty(t, token.TokenHash)
	assert.Equal(t, int64(100), token.UserID)

	identity, err := svc.Authenticate(ctx, plaintext)
	require.NoError(t, err)
	assert.Equal(t, int64(100), identity.User.ID)
	assert.Zero(t, identity.ImpersonatedBy)
}

func TestAuthenticateRejectsUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "mk_doesnotexist")
	require.Error(t, err)
	assert.True(t, errs.IsAccessDenied(err))
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	svc, _, accounts := newTestService(t)
	ctx := context.Background()
	maker := actorFor(accounts.users[100])

	token, plaintext, err := svc.CreateToken(ctx, maker, CreateTokenInput{Name: "cli"})
	require.NoError(t, err)
	require.NoError(t, svc.RevokeToken(ctx, maker, token.ID))

	_, err = svc.Authenticate(ctx, plaintext)
	require.Error(t, err)
	assert.True(t, errs.IsAccessDenied(err))
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	svc, tokens, accounts := newTestService(t)
	ctx := context.Background()
	maker := actorFor(accounts.users[100])

	token, plaintext, err := svc.CreateToken(ctx, maker, CreateTokenInput{Name: "cli"})
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	tokens.tokens[token.ID].ExpiresAt = &past

	_, err = svc.Authenticate(ctx, plaintext)
	require.Error(t, err)
	assert.True(t, errs.IsAccessDenied(err))
}

func TestBannedActorCannotCreateToken(t *testing.T) {
	svc, _, accounts := newTestService(t)

	_, _, err := svc.CreateToken(context.Background(), actorFor(accounts.users[101]), CreateTokenInput{Name: "cli"})
	require.Error(t, err)
	assert.True(t, errs.IsAccessDenied(err))
}

func TestCreateTokenValidation(t *testing.T) {
	svc, _, accounts := newTestService(t)

	_, _, err := svc.CreateToken(context.Background(), actorFor(accounts.users[100]), CreateTokenInput{})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Contains(t, errs.DetailsOf(err), "name")
}

func TestRevokeOtherUsersToken(t *testing.T) {
	svc, _, accounts := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.CreateToken(ctx, actorFor(accounts.users[100]), CreateTokenInput{Name: "cli"})
	require.NoError(t, err)

	// A stranger sees the token as missing; an admin may revoke it
	stranger := policy.Actor{ID: 999, Role: policy.RoleRegular, Status: policy.StatusActive}
	err = svc.RevokeToken(ctx, stranger, token.ID)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	require.NoError(t, svc.RevokeToken(ctx, actorFor(accounts.users[1]), token.ID))
}

func TestImpersonateIssuesWorkingToken(t *testing.T) {
	svc, _, accounts := newTestService(t)
	ctx := context.Background()
	admin := actorFor(accounts.users[1])

	token, expiresAt, err := svc.Impersonate(ctx, admin, 100)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	identity, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(100), identity.User.ID)
	assert.Equal(t, int64(1), identity.ImpersonatedBy)
}

func TestImpersonateDenials(t *testing.T) {
	svc, _, accounts := newTestService(t)
	ctx := context.Background()
	admin := actorFor(accounts.users[1])

	_, _, err := svc.Impersonate(ctx, actorFor(accounts.users[100]), 101)
	assert.True(t, errs.IsAccessDenied(err))

	_, _, err = svc.Impersonate(ctx, admin, admin.ID)
	assert.True(t, errs.IsValidation(err))

	_, _, err = svc.Impersonate(ctx, admin, 2)
	assert.True(t, errs.IsAccessDenied(err))

	_, _, err = svc.Impersonate(ctx, admin, 9999)
	assert.True(t, errs.IsNotFound(err))
}

func TestImpersonationStopsWhenAdminDemoted(t *testing.T) {
	svc, _, accounts := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Impersonate(ctx, actorFor(accounts.users[1]), 100)
	require.NoError(t, err)

	accounts.users[1].Role = policy.RoleRegular

	_, err = svc.Authenticate(ctx, token)
	require.Error(t, err)
	assert.True(t, errs.IsAccessDenied(err))
}
