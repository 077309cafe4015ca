package policy

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/makersite/makersite/pkg/errs"
)

// Directory answers the two questions owner resolution needs: the direct
// owner of a resource and the parent id of a nested resource. The SQL
// implementation lives in pkg/store.
type Directory interface {
	// Owner returns the owner id stored directly on the entity
	Owner(ctx context.Context, resource Resource, id int64) (int64, error)
	// Parent returns the id of the entity's parent resource
	Parent(ctx context.Context, resource Resource, id int64) (int64, error)
}

// Engine is the access policy engine: a pure decision function over the
// actor, the action and the target's resolved root owner.
type Engine struct {
	dir   Directory
	cache *lru.Cache[string, int64]
}

// NewEngine creates a policy engine. cacheSize bounds the owner-resolution
// cache; zero disables caching.
func NewEngine(dir Directory, cacheSize int) *Engine {
	e := &Engine{dir: dir}
	if cacheSize > 0 {
		// lru.New only fails on a non-positive size
		e.cache, _ = lru.New[string, int64](cacheSize)
	}
	return e
}

// ScopeFor returns the row predicate for listing a resource type:
// everything for admins, owned rows for everyone else. An empty result
// under a restricted scope is a valid outcome for listings, not an error.
func (e *Engine) ScopeFor(actor Actor, resource Resource) Scope {
	if actor.IsAdmin() {
		return Scope{All: true}
	}
	return Scope{OwnerID: actor.ID}
}

// AuthorizeCreate decides whether the actor may create a new resource.
// Creation has no existing row to resolve ownership against; the only
// gate is account status, since owners are assigned by the services.
func (e *Engine) AuthorizeCreate(actor Actor) error {
	if actor.IsBanned() {
		return errs.AccessDenied("account is banned")
	}
	return nil
}

// Authorize decides whether the actor may perform the action on the
// target. It returns nil when allowed, errs.AccessDenied otherwise.
// Single-record read paths should prefer scoped fetches so that
// out-of-scope entities surface as NotFound instead.
func (e *Engine) Authorize(ctx context.Context, actor Actor, action Action, target Target) error {
	// Banned actors may still view their own resources but never mutate,
	// even inside their own scope.
	if actor.IsBanned() && action.IsMutation() {
		return errs.AccessDenied("account is banned")
	}

	// Destructive self-targeting actions are denied regardless of role:
	// an admin cannot delete or ban their own account.
	if target.Resource == ResourceUser && target.ID == actor.ID &&
		(action == ActionDelete || action == ActionBan) {
		return errs.AccessDenied("cannot perform this action on your own account")
	}

	if actor.IsAdmin() {
		return nil
	}

	ownerID, err := e.ResolveOwner(ctx, target.Resource, target.ID)
	if err != nil {
		return err
	}
	if !e.ScopeFor(actor, target.Resource).Contains(ownerID) {
		return errs.AccessDenied("")
	}
	return nil
}

// ResolveOwner walks the ownership rules to the root owning actor:
// directly for owned entities, through Site for pages and sections,
// through Course for lessons.
func (e *Engine) ResolveOwner(ctx context.Context, resource Resource, id int64) (int64, error) {
	if e.cache != nil {
		if owner, ok := e.cache.Get(cacheKey(resource, id)); ok {
			return owner, nil
		}
	}

	rule, ok := OwnershipOf(resource)
	if !ok {
		return 0, errs.Internal(fmt.Errorf("no ownership rule for resource %q", resource))
	}

	var owner int64
	var err error
	if rule.Direct {
		// A user record is owned by itself.
		if resource == ResourceUser {
			owner = id
		} else {
			owner, err = e.dir.Owner(ctx, resource, id)
		}
	} else {
		var parentID int64
		parentID, err = e.dir.Parent(ctx, resource, id)
		if err == nil {
			owner, err = e.ResolveOwner(ctx, rule.Parent, parentID)
		}
	}
	if err != nil {
		return 0, err
	}

	if e.cache != nil {
		e.cache.Add(cacheKey(resource, id), owner)
	}
	return owner, nil
}

// Invalidate drops the cached owner for an entity. Call after ownership
// transfers or deletes.
func (e *Engine) Invalidate(resource Resource, id int64) {
	if e.cache != nil {
		e.cache.Remove(cacheKey(resource, id))
	}
}

func cacheKey(resource Resource, id int64) string {
	return fmt.Sprintf("%s:%d", resource, id)
}
