package products

import (
	"context"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
	"github.com/makersite/makersite/pkg/store"
)

// listSpec shapes product listings, owner-facing and public alike
var listSpec = query.Spec{
	IDColumn:      "id",
	OwnerColumn:   "user_id",
	DeletedColumn: "deleted_at",
	SearchColumns: []string{"name", "description", "sku"},
	FilterColumns: map[string]string{
		"price_type": "price_type",
		"published":  "published",
		"featured":   "featured",
		"site_id":    "site_id",
	},
	SortColumns: map[string]string{"name": "name", "price": "price", "created_at": "created_at"},
	DefaultSort: "created_at",
}

// Service implements product operations with policy enforcement
type Service struct {
	store  Store
	engine *policy.Engine
	files  storage.FileStore
	logger *observability.Logger
}

// NewService creates a product service
func NewService(st Store, engine *policy.Engine, files storage.FileStore, logger *observability.Logger) *Service {
	return &Service{store: st, engine: engine, files: files, logger: logger}
}

// List returns the actor's products, or all products for admins
func (s *Service) List(ctx context.Context, actor policy.Actor, params query.Params) (query.Page[*Product], error) {
	clause := listSpec.Shape(s.engine.ScopeFor(actor, policy.ResourceProduct), params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Product]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// ListFor returns one user's products. Only that user or an admin may
// ask.
func (s *Service) ListFor(ctx context.Context, actor policy.Actor, userID int64, params query.Params) (query.Page[*Product], error) {
	if actor.ID != userID && !actor.IsAdmin() {
		return query.Page[*Product]{}, errs.AccessDenied("")
	}
	clause := listSpec.Shape(policy.Scope{OwnerID: userID}, params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Product]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// Search returns published products for the public storefront
func (s *Service) Search(ctx context.Context, params query.Params) (query.Page[*Product], error) {
	return s.publicList(ctx, params, false)
}

// Featured returns published products flagged for the storefront front
// page
func (s *Service) Featured(ctx context.Context, params query.Params) (query.Page[*Product], error) {
	return s.publicList(ctx, params, true)
}

func (s *Service) publicList(ctx context.Context, params query.Params, featuredOnly bool) (query.Page[*Product], error) {
	filters := map[string]string{"published": "true"}
	if featuredOnly {
		filters["featured"] = "true"
	}
	for k, v := range params.Filters {
		if k != "published" && k != "featured" {
			filters[k] = v
		}
	}
	params.Filters = filters
	clause := listSpec.Shape(policy.Scope{All: true}, params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Product]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// Get returns a single product inside the actor's scope
func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (*Product, error) {
	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.ScopeFor(actor, policy.ResourceProduct).Contains(product.UserID) {
		return nil, errs.NotFound("product")
	}
	return product, nil
}

// PublicGet returns a published product by slug
func (s *Service) PublicGet(ctx context.Context, slug string) (*Product, error) {
	product, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.Published {
		return nil, errs.NotFound("product")
	}
	return product, nil
}

// Create makes a new product owned by the actor
func (s *Service) Create(ctx context.Context, actor policy.Actor, in Input) (*Product, error) {
	if err := s.engine.AuthorizeCreate(actor); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	ownerID := actor.ID
	if actor.IsAdmin() && in.UserID > 0 {
		ownerID = in.UserID
	}

	product := &Product{
		UserID:      ownerID,
		SiteID:      in.SiteID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		PriceType:   in.PriceType,
		Stock:       in.Stock,
		SKU:         in.SKU,
		FeaturedImg: in.FeaturedImg,
		Featured:    in.Featured,
		Published:   in.Published,
	}
	slug, err := store.InsertWithSlug(ctx, store.Slugify(in.Name), func(ctx context.Context, slug string) error {
		product.Slug = slug
		return s.store.Insert(ctx, product)
	})
	if err != nil {
		if errs.IsConflict(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}
	product.Slug = slug

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"actor_id":   actor.ID,
	}).Info("product created")
	return product, nil
}

// Update changes product fields. A replaced featured image is deleted
// after the row is saved; that deletion is best-effort.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, in Input) (*Product, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceProduct, ID: id}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var oldImage string
	if in.FeaturedImg != nil && product.FeaturedImg != nil && product.FeaturedImg.Path != in.FeaturedImg.Path {
		oldImage = product.FeaturedImg.Path
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.PriceType = in.PriceType
	product.Stock = in.Stock
	product.SKU = in.SKU
	product.SiteID = in.SiteID
	product.Featured = in.Featured
	product.Published = in.Published
	if in.FeaturedImg != nil {
		product.FeaturedImg = in.FeaturedImg
	}

	if err := s.store.Update(ctx, product); err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}

	if oldImage != "" {
		if err := s.files.Delete(ctx, oldImage); err != nil {
			s.logger.WithError(err).WithField("path", oldImage).Warn("failed to delete replaced product image")
		}
	}
	return product, nil
}

// Delete removes a product and releases its featured image
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{Resource: policy.ResourceProduct, ID: id}); err != nil {
		return err
	}

	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.engine.Invalidate(policy.ResourceProduct, id)

	if product.FeaturedImg != nil {
		if err := s.files.Delete(ctx, product.FeaturedImg.Path); err != nil {
			s.logger.WithError(err).WithField("path", product.FeaturedImg.Path).Warn("failed to delete product image")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
		"actor_id":   actor.ID,
	}).Info("product deleted")
	return nil
}

// Count reports how many live products exist, for the admin dashboard
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
