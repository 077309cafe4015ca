package sites

import (
	"context"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/store"
)

// CreatePage adds a page to a site the actor controls
func (s *Service) CreatePage(ctx context.Context, actor policy.Actor, siteID int64, in PageInput) (*Page, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceSite, ID: siteID}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	page := &Page{
		SiteID:    siteID,
		Title:     in.Title,
		Position:  in.Position,
		Published: in.Published,
	}
	slug, err := store.InsertWithSlug(ctx, store.Slugify(in.Title), func(ctx context.Context, slug string) error {
		page.Slug = slug
		return s.store.InsertPage(ctx, page)
	})
	if err != nil {
		if errs.IsConflict(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}
	page.Slug = slug
	return page, nil
}

// GetPage returns a page inside the actor's scope
func (s *Service) GetPage(ctx context.Context, actor policy.Actor, id int64) (*Page, error) {
	page, err := s.store.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.inScope(ctx, actor, policy.ResourcePage, id); err != nil {
		return nil, err
	}
	return page, nil
}

// ListPages returns a site's pages in display order
func (s *Service) ListPages(ctx context.Context, actor policy.Actor, siteID int64) ([]*Page, error) {
	if _, err := s.Get(ctx, actor, siteID); err != nil {
		return nil, err
	}
	pages, err := s.store.ListPages(ctx, siteID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if pages == nil {
		pages = []*Page{}
	}
	return pages, nil
}

// UpdatePage changes page fields
func (s *Service) UpdatePage(ctx context.Context, actor policy.Actor, id int64, in PageInput) (*Page, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourcePage, ID: id}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	page, err := s.store.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	page.Title = in.Title
	page.Position = in.Position
	page.Published = in.Published

	if err := s.store.UpdatePage(ctx, page); err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}
	return page, nil
}

// DeletePage removes a page and its sections atomically
func (s *Service) DeletePage(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{Resource: policy.ResourcePage, ID: id}); err != nil {
		return err
	}
	if err := s.store.DeletePageCascade(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.engine.Invalidate(policy.ResourcePage, id)
	return nil
}

// CreateSection adds a content block to a page the actor controls
func (s *Service) CreateSection(ctx context.Context, actor policy.Actor, pageID int64, in SectionInput) (*Section, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourcePage, ID: pageID}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	section := &Section{
		PageID:   pageID,
		Type:     in.Type,
		Content:  in.Content,
		Position: in.Position,
	}
	if err := s.store.InsertSection(ctx, section); err != nil {
		return nil, errs.Internal(err)
	}
	return section, nil
}

// GetSection returns a section inside the actor's scope
func (s *Service) GetSection(ctx context.Context, actor policy.Actor, id int64) (*Section, error) {
	section, err := s.store.GetSection(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.inScope(ctx, actor, policy.ResourceSection, id); err != nil {
		return nil, err
	}
	return section, nil
}

// ListSections returns a page's sections in display order
func (s *Service) ListSections(ctx context.Context, actor policy.Actor, pageID int64) ([]*Section, error) {
	if _, err := s.GetPage(ctx, actor, pageID); err != nil {
		return nil, err
	}
	sections, err := s.store.ListSections(ctx, pageID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if sections == nil {
		sections = []*Section{}
	}
	return sections, nil
}

// UpdateSection changes a content block
func (s *Service) UpdateSection(ctx context.Context, actor policy.Actor, id int64, in SectionInput) (*Section, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceSection, ID: id}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	section, err := s.store.GetSection(ctx, id)
	if err != nil {
		return nil, err
	}
	section.Type = in.Type
	section.Content = in.Content
	section.Position = in.Position

	if err := s.store.UpdateSection(ctx, section); err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}
	return section, nil
}

// DeleteSection removes a content block
func (s *Service) DeleteSection(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{Resource: policy.ResourceSection, ID: id}); err != nil {
		return err
	}
	if err := s.store.DeleteSection(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.engine.Invalidate(policy.ResourceSection, id)
	return nil
}

// inScope reports scope membership as NotFound for read paths
func (s *Service) inScope(ctx context.Context, actor policy.Actor, resource policy.Resource, id int64) error {
	if actor.IsAdmin() {
		return nil
	}
	ownerID, err := s.engine.ResolveOwner(ctx, resource, id)
	if err != nil {
		return err
	}
	if !s.engine.ScopeFor(actor, resource).Contains(ownerID) {
		return errs.NotFound(string(resource))
	}
	return nil
}
