package policy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makersite/makersite/pkg/errs"
)

// fakeDirectory answers ownership lookups from in-memory maps and counts
// calls so the cache behavior can be observed.
type fakeDirectory struct {
	owners  map[string]int64 // "resource:id" -> owner id
	parents map[string]int64 // "resource:id" -> parent id
	calls   int
}

func (d *fakeDirectory) Owner(_ context.Context, resource Resource, id int64) (int64, error) {
	d.calls++
	owner, ok := d.owners[fmt.Sprintf("%s:%d", resource, id)]
	if !ok {
		return 0, errs.NotFound(string(resource))
	}
	return owner, nil
}

func (d *fakeDirectory) Parent(_ context.Context, resource Resource, id int64) (int64, error) {
	d.calls++
	parent, ok := d.parents[fmt.Sprintf("%s:%d", resource, id)]
	if !ok {
		return 0, errs.NotFound(string(resource))
	}
	return parent, nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		owners: map[string]int64{
			"site:10":    100,
			"site:11":    200,
			"product:20": 100,
			"course:30":  100,
			"media:40":   200,
		},
		parents: map[string]int64{
			"page:50":    10, // page 50 -> site 10 -> owner 100
			"section:60": 50, // section 60 -> page 50 -> site 10 -> owner 100
			"lesson:70":  30, // lesson 70 -> course 30 -> owner 100
		},
	}
}

var (
	owner  = Actor{ID: 100, Role: RoleRegular, Status: StatusActive}
	other  = Actor{ID: 200, Role: RoleRegular, Status: StatusActive}
	admin  = Actor{ID: 1, Role: RoleAdmin, Status: StatusActive}
	banned = Actor{ID: 100, Role: RoleRegular, Status: StatusBanned}
)

func TestScopeFor(t *testing.T) {
	e := NewEngine(testDirectory(), 0)

	assert.True(t, e.ScopeFor(admin, ResourceSite).All)
	scope := e.ScopeFor(owner, ResourceSite)
	assert.False(t, scope.All)
	assert.Equal(t, int64(100), scope.OwnerID)
	assert.True(t, scope.Contains(100))
	assert.False(t, scope.Contains(200))
}

func TestAuthorizeDirectOwnership(t *testing.T) {
	e := NewEngine(testDirectory(), 0)
	ctx := context.Background()

	site := Target{Resource: ResourceSite, ID: 10}

	assert.NoError(t, e.Authorize(ctx, owner, ActionUpdate, site))
	assert.NoError(t, e.Authorize(ctx, admin, ActionUpdate, site))

	err := e.Authorize(ctx, other, ActionUpdate, site)
	assert.True(t, errs.IsAccessDenied(err))
}

func TestAuthorizeTransitiveOwnership(t *testing.T) {
	e := NewEngine(testDirectory(), 0)
	ctx := context.Background()

	tests := []struct {
		name   string
		target Target
	}{
		{"page resolves through site", Target{Resource: ResourcePage, ID: 50}},
		{"section resolves through page and site", Target{Resource: ResourceSection, ID: 60}},
		{"lesson resolves through course", Target{Resource: ResourceLesson, ID: 70}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, e.Authorize(ctx, owner, ActionUpdate, tt.target))
			assert.True(t, errs.IsAccessDenied(e.Authorize(ctx, other, ActionUpdate, tt.target)))
			assert.NoError(t, e.Authorize(ctx, admin, ActionDelete, tt.target))
		})
	}
}

func TestAuthorizeBannedActor(t *testing.T) {
	e := NewEngine(testDirectory(), 0)
	ctx := context.Background()

	// Mutations are denied even on the actor's own resources.
	site := Target{Resource: ResourceSite, ID: 10}
	assert.True(t, errs.IsAccessDenied(e.Authorize(ctx, banned, ActionUpdate, site)))
	assert.True(t, errs.IsAccessDenied(e.Authorize(ctx, banned, ActionDelete, site)))

	// Viewing own resources remains allowed.
	assert.NoError(t, e.Authorize(ctx, banned, ActionView, site))
}

func TestAuthorizeSelfTargetingDestructiveActions(t *testing.T) {
	e := NewEngine(testDirectory(), 0)
	ctx := context.Background()

	self := Target{Resource: ResourceUser, ID: admin.ID}

	// Admins cannot delete or ban their own account, scope notwithstanding.
	assert.True(t, errs.IsAccessDenied(e.Authorize(ctx, admin, ActionDelete, self)))
	assert.True(t, errs.IsAccessDenied(e.Authorize(ctx, admin, ActionBan, self)))

	// Non-destructive self actions stay allowed.
	assert.NoError(t, e.Authorize(ctx, admin, ActionUpdate, self))

	// Other users remain fair game for admins.
	assert.NoError(t, e.Authorize(ctx, admin, ActionDelete, Target{Resource: ResourceUser, ID: 42}))
}

func TestAuthorizeUserRecords(t *testing.T) {
	e := NewEngine(testDirectory(), 0)
	ctx := context.Background()

	// Users own their own record.
	assert.NoError(t, e.Authorize(ctx, owner, ActionUpdate, Target{Resource: ResourceUser, ID: owner.ID}))
	assert.True(t, errs.IsAccessDenied(e.Authorize(ctx, owner, ActionUpdate, Target{Resource: ResourceUser, ID: other.ID})))
}

func TestResolveOwnerCaching(t *testing.T) {
	dir := testDirectory()
	e := NewEngine(dir, 128)
	ctx := context.Background()

	// Section resolution walks section -> page -> site: three lookups.
	ownerID, err := e.ResolveOwner(ctx, ResourceSection, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(100), ownerID)
	firstCalls := dir.calls

	// Second resolution is served entirely from cache.
	ownerID, err = e.ResolveOwner(ctx, ResourceSection, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(100), ownerID)
	assert.Equal(t, firstCalls, dir.calls)

	// Invalidation forces a fresh walk for the section itself.
	e.Invalidate(ResourceSection, 60)
	_, err = e.ResolveOwner(ctx, ResourceSection, 60)
	require.NoError(t, err)
	assert.Greater(t, dir.calls, firstCalls)
}

func TestResolveOwnerUnknownEntity(t *testing.T) {
	e := NewEngine(testDirectory(), 0)
	_, err := e.ResolveOwner(context.Background(), ResourceSite, 999)
	assert.True(t, errs.IsNotFound(err))
}
