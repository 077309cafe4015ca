// Package policy implements the access policy engine shared by every
// entity's read and write path.
//
// # Overview
//
// Two decisions recur across all controllers: which rows may a caller
// see (ScopeFor) and may a caller perform a single-record action
// (Authorize). Both are centralized here so role comparisons never leak
// into business logic.
//
// # Ownership
//
// Every entity resolves to exactly one owning actor. Most resources
// carry the owner id directly; pages and sections inherit it through
// their site, lessons through their course. The mapping is a fixed
// table of tagged strategies (OwnershipOf) rather than dynamic
// relationship traversal, so the engine stays inspectable.
//
// # Rules
//
//   - Admin actors have unrestricted scope.
//   - Regular actors are restricted to entities they own, directly or
//     transitively.
//   - Banned actors are denied all mutations at this layer, even on
//     their own resources; viewing their own resources stays allowed.
//   - Destructive self-targeting admin actions (deleting or banning
//     one's own account) are always denied.
//
// # Usage
//
//	scope := engine.ScopeFor(actor, policy.ResourceSite)
//	sites, total, err := store.List(ctx, scope, params)
//
//	if err := engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{
//		Resource: policy.ResourceSite,
//		ID:       siteID,
//	}); err != nil {
//		return err
//	}
package policy
