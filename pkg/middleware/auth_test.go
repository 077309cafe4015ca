package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makersite/makersite/pkg/auth"
	"github.com/makersite/makersite/pkg/contextkeys"
	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/users"
)

type stubTokenStore struct {
	byHash map[string]*auth.APIToken
}

func (s *stubTokenStore) Insert(context.Context, *auth.APIToken) error { return nil }

func (s *stubTokenStore) GetByHash(_ context.Context, hash string) (*auth.APIToken, error) {
	if t, ok := s.byHash[hash]; ok {
		return t, nil
	}
	return nil, errs.NotFound("token not found")
}

func (s *stubTokenStore) GetByID(context.Context, int64) (*auth.APIToken, error) {
	return nil, errs.NotFound("token not found")
}

func (s *stubTokenStore) ListByUser(context.Context, int64) ([]*auth.APIToken, error) {
	return nil, nil
}

func (s *stubTokenStore) TouchLastUsed(context.Context, int64, time.Time) error { return nil }
func (s *stubTokenStore) Revoke(context.Context, int64, time.Time) error        { return nil }
func (s *stubTokenStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type stubUserStore struct {
	byID map[int64]*users.User
}

func (s *stubUserStore) Insert(context.Context, *users.User) error { return nil }

func (s *stubUserStore) GetByID(_ context.Context, id int64) (*users.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, errs.NotFound("user not found")
}

func (s *stubUserStore) GetByEmail(context.Context, string) (*users.User, error) {
	return nil, errs.NotFound("user not found")
}

func (s *stubUserStore) List(context.Context, query.Clause) ([]*users.User, int64, error) {
	return nil, 0, nil
}

func (s *stubUserStore) Update(context.Context, *users.User) error      { return nil }
func (s *stubUserStore) SetStatus(context.Context, int64, string) error { return nil }
func (s *stubUserStore) SoftDelete(context.Context, int64) error        { return nil }
func (s *stubUserStore) CountByStatus(context.Context) (map[string]int64, error) {
	return nil, nil
}

func newAuthMiddleware(t *testing.T) (*Auth, string) {
	t.Helper()

	plaintext, hash, prefix, err := auth.GenerateToken()
	require.NoError(t, err)

	tokens := &stubTokenStore{byHash: map[string]*auth.APIToken{
		hash: {ID: 1, UserID: 100, TokenHash: hash, TokenPrefix: prefix, Name: "cli", CreatedAt: time.Now()},
	}}
	accounts := &stubUserStore{byID: map[int64]*users.User{
		100: {ID: 100, Name: "Maker", Role: policy.RoleRegular, Status: policy.StatusActive},
	}}

	svc := auth.NewService(tokens, accounts, policy.NewEngine(nil, 0),
		auth.NewImpersonator("test-secret", time.Minute), observability.NopLogger())
	return NewAuth(svc, observability.NopLogger()), plaintext
}

func actorCapture(dest *policy.Actor, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dest, *found = contextkeys.ActorFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthHandlerValidToken(t *testing.T) {
	m, plaintext := newAuthMiddleware(t)

	var actor policy.Actor
	var found bool
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/sites", nil)
	r.Header.Set("Authorization", "Bearer "+plaintext)
	m.Handler(actorCapture(&actor, &found)).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	assert.Equal(t, int64(100), actor.ID)
}

func TestAuthHandlerRejections(t *testing.T) {
	m, _ := newAuthMiddleware(t)
	handler := m.Handler(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"unknown token", "Bearer mk_unknowntoken"},
		{"garbage jwt", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/api/v1/sites", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			handler.ServeHTTP(rec, r)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/admin/users", nil)
	r = r.WithContext(contextkeys.WithActor(r.Context(), policy.Actor{ID: 5, Role: policy.RoleRegular}))
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/api/v1/admin/users", nil)
	r = r.WithContext(contextkeys.WithActor(r.Context(), policy.Actor{ID: 1, Role: policy.RoleAdmin}))
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = contextkeys.RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, rec.Header().Get(RequestIDHeader))

	// A supplied id is kept
	rec = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(RequestIDHeader, "upstream-id")
	handler.ServeHTTP(rec, r)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}
