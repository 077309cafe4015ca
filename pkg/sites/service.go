package sites

import (
	"context"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
	"github.com/makersite/makersite/pkg/store"
)

// listSpec shapes owner-facing site listings
var listSpec = query.Spec{
	IDColumn:      "id",
	OwnerColumn:   "user_id",
	DeletedColumn: "deleted_at",
	SearchColumns: []string{"name", "address", "description"},
	FilterColumns: map[string]string{"published": "published"},
	SortColumns:   map[string]string{"name": "name", "created_at": "created_at"},
	DefaultSort:   "created_at",
}

// Service implements site operations with policy enforcement
type Service struct {
	store  Store
	engine *policy.Engine
	files  storage.FileStore
	logger *observability.Logger
}

// NewService creates a site service
func NewService(st Store, engine *policy.Engine, files storage.FileStore, logger *observability.Logger) *Service {
	return &Service{store: st, engine: engine, files: files, logger: logger}
}

// List returns the actor's sites, or all sites for admins
func (s *Service) List(ctx context.Context, actor policy.Actor, params query.Params) (query.Page[*Site], error) {
	clause := listSpec.Shape(s.engine.ScopeFor(actor, policy.ResourceSite), params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Site]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// ListFor returns one user's sites. Only that user or an admin may ask.
func (s *Service) ListFor(ctx context.Context, actor policy.Actor, userID int64, params query.Params) (query.Page[*Site], error) {
	if actor.ID != userID && !actor.IsAdmin() {
		return query.Page[*Site]{}, errs.AccessDenied("")
	}
	clause := listSpec.Shape(policy.Scope{OwnerID: userID}, params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Site]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// ListPublished returns publicly visible sites. No actor required.
func (s *Service) ListPublished(ctx context.Context, params query.Params) (query.Page[*Site], error) {
	filters := map[string]string{"published": "true"}
	for k, v := range params.Filters {
		if k != "published" {
			filters[k] = v
		}
	}
	params.Filters = filters
	clause := listSpec.Shape(policy.Scope{All: true}, params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Site]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// Get returns a single site inside the actor's scope. Other actors'
// sites are reported as missing, not forbidden.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (*Site, error) {
	site, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.ScopeFor(actor, policy.ResourceSite).Contains(site.UserID) {
		return nil, errs.NotFound("site")
	}
	return site, nil
}

// PageTree is a published page with its sections
type PageTree struct {
	*Page
	Sections []*Section `json:"sections"`
}

// SiteTree is the public rendering payload for a site
type SiteTree struct {
	*Site
	Pages []*PageTree `json:"pages"`
}

// PublicSite returns a published site with its published pages and
// their sections, addressed by the site's public address
func (s *Service) PublicSite(ctx context.Context, address string) (*SiteTree, error) {
	site, err := s.store.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if !site.Published {
		return nil, errs.NotFound("site")
	}

	pages, err := s.store.ListPages(ctx, site.ID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	tree := &SiteTree{Site: site, Pages: []*PageTree{}}
	for _, page := range pages {
		if !page.Published {
			continue
		}
		sections, err := s.store.ListSections(ctx, page.ID)
		if err != nil {
			return nil, errs.Internal(err)
		}
		if sections == nil {
			sections = []*Section{}
		}
		tree.Pages = append(tree.Pages, &PageTree{Page: page, Sections: sections})
	}
	return tree, nil
}

// Create makes a new site owned by the actor. Admins may create on
// behalf of another account via the input's user id.
func (s *Service) Create(ctx context.Context, actor policy.Actor, in SiteInput) (*Site, error) {
	if err := s.engine.AuthorizeCreate(actor); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	if existing, err := s.store.GetByAddress(ctx, in.Address); err == nil && existing != nil {
		return nil, errs.Conflict("address is already taken")
	} else if err != nil && !errs.IsNotFound(err) {
		return nil, errs.Internal(err)
	}

	ownerID := actor.ID
	if actor.IsAdmin() && in.UserID > 0 {
		ownerID = in.UserID
	}

	site := &Site{
		UserID:      ownerID,
		Name:        in.Name,
		Address:     in.Address,
		Description: in.Description,
		Settings:    in.Settings,
		SEO:         in.SEO,
		Logo:        in.Logo,
		Favicon:     in.Favicon,
	}
	slug, err := store.InsertWithSlug(ctx, store.Slugify(in.Name), func(ctx context.Context, slug string) error {
		site.Slug = slug
		return s.store.Insert(ctx, site)
	})
	if err != nil {
		if errs.IsConflict(err) {
			return nil, err
		}
		if store.IsUniqueViolation(err) {
			// The slug retries already ran, so the collision is the address.
			return nil, errs.Conflict("address is already taken")
		}
		return nil, errs.Internal(err)
	}
	site.Slug = slug

	s.logger.WithFields(map[string]interface{}{
		"site_id":  site.ID,
		"actor_id": actor.ID,
	}).Info("site created")
	return site, nil
}

// Update changes site fields. Replaced logo and favicon files are
// deleted after the row is saved; those deletions are best-effort.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, in SiteInput) (*Site, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceSite, ID: id}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	site, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var replaced []string
	site.Name = in.Name
	site.Description = in.Description
	if in.Settings != nil {
		site.Settings = in.Settings
	}
	if in.SEO != nil {
		site.SEO = in.SEO
	}
	if in.Logo != nil {
		if site.Logo != nil && site.Logo.Path != in.Logo.Path {
			replaced = append(replaced, site.Logo.Path)
		}
		site.Logo = in.Logo
	}
	if in.Favicon != nil {
		if site.Favicon != nil && site.Favicon.Path != in.Favicon.Path {
			replaced = append(replaced, site.Favicon.Path)
		}
		site.Favicon = in.Favicon
	}

	if err := s.store.Update(ctx, site); err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}

	s.releaseFiles(ctx, replaced)
	return site, nil
}

// Publish makes a site publicly visible
func (s *Service) Publish(ctx context.Context, actor policy.Actor, id int64) error {
	return s.setPublished(ctx, actor, id, true)
}

// Unpublish hides a site from public listings and rendering
func (s *Service) Unpublish(ctx context.Context, actor policy.Actor, id int64) error {
	return s.setPublished(ctx, actor, id, false)
}

func (s *Service) setPublished(ctx context.Context, actor policy.Actor, id int64, published bool) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceSite, ID: id}); err != nil {
		return err
	}
	if err := s.store.SetPublished(ctx, id, published); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	return nil
}

// Delete removes a site with its pages and sections, then releases the
// site's stored files
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{Resource: policy.ResourceSite, ID: id}); err != nil {
		return err
	}

	site, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCascade(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.engine.Invalidate(policy.ResourceSite, id)

	var paths []string
	if site.Logo != nil {
		paths = append(paths, site.Logo.Path)
	}
	if site.Favicon != nil {
		paths = append(paths, site.Favicon.Path)
	}
	s.releaseFiles(ctx, paths)

	s.logger.WithFields(map[string]interface{}{
		"site_id":  id,
		"actor_id": actor.ID,
	}).Info("site deleted")
	return nil
}

// releaseFiles deletes stored files after a successful row change. The
// row is the source of truth; orphaned files are tolerable, dangling
// references are not.
func (s *Service) releaseFiles(ctx context.Context, paths []string) {
	for _, path := range paths {
		if err := s.files.Delete(ctx, path); err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("failed to delete stored file")
		}
	}
}

// Count reports how many live sites exist, for the admin dashboard
func (s *Service) Count(ctx context.Context, actor policy.Actor) (int64, error) {
	if !actor.IsAdmin() {
		return 0, errs.AccessDenied("admin access required")
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, errs.Internal(err)
	}
	return n, nil
}
