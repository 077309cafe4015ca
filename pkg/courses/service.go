package courses

import (
	"context"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
	"github.com/makersite/makersite/pkg/store"
)

// listSpec shapes course listings, owner-facing and public alike
var listSpec = query.Spec{
	IDColumn:      "id",
	OwnerColumn:   "user_id",
	DeletedColumn: "deleted_at",
	SearchColumns: []string{"name", "description"},
	FilterColumns: map[string]string{
		"price_type": "price_type",
		"published":  "published",
		"site_id":    "site_id",
	},
	SortColumns: map[string]string{"name": "name", "price": "price", "created_at": "created_at"},
	DefaultSort: "created_at",
}

// Service implements course operations with policy enforcement
type Service struct {
	store  Store
	engine *policy.Engine
	files  storage.FileStore
	logger *observability.Logger
}

// NewService creates a course service
func NewService(st Store, engine *policy.Engine, files storage.FileStore, logger *observability.Logger) *Service {
	return &Service{store: st, engine: engine, files: files, logger: logger}
}

// List returns the actor's courses, or all courses for admins
func (s *Service) List(ctx context.Context, actor policy.Actor, params query.Params) (query.Page[*Course], error) {
	clause := listSpec.Shape(s.engine.ScopeFor(actor, policy.ResourceCourse), params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Course]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// ListFor returns one user's courses. Only that user or an admin may
// ask.
func (s *Service) ListFor(ctx context.Context, actor policy.Actor, userID int64, params query.Params) (query.Page[*Course], error) {
	if actor.ID != userID && !actor.IsAdmin() {
		return query.Page[*Course]{}, errs.AccessDenied("")
	}
	clause := listSpec.Shape(policy.Scope{OwnerID: userID}, params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Course]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// Search returns published courses for the public catalog
func (s *Service) Search(ctx context.Context, params query.Params) (query.Page[*Course], error) {
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
		return query.Page[*Course]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// Get returns a single course inside the actor's scope
func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (*Course, error) {
	course, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.ScopeFor(actor, policy.ResourceCourse).Contains(course.UserID) {
		return nil, errs.NotFound("course")
	}
	return course, nil
}

// CourseOutline is the public view of a course with its lesson overview
type CourseOutline struct {
	*Course
	Lessons []*Lesson `json:"lessons"`
}

// PublicGet returns a published course by slug with its lesson outline.
// Lesson content is withheld; enrollment gates the material itself.
func (s *Service) PublicGet(ctx context.Context, slug string) (*CourseOutline, error) {
	course, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, errs.NotFound("course")
	}
	lessons, err := s.store.ListLessons(ctx, course.ID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	outline := make([]*Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		outline = append(outline, &Lesson{
			ID:       lesson.ID,
			CourseID: lesson.CourseID,
			Title:    lesson.Title,
			Duration: lesson.Duration,
			Position: lesson.Position,
		})
	}
	return &CourseOutline{Course: course, Lessons: outline}, nil
}

// Create makes a new course owned by the actor
func (s *Service) Create(ctx context.Context, actor policy.Actor, in CourseInput) (*Course, error) {
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

	course := &Course{
		UserID:      ownerID,
		SiteID:      in.SiteID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		PriceType:   in.PriceType,
		FeaturedImg: in.FeaturedImg,
		Published:   in.Published,
	}
	slug, err := store.InsertWithSlug(ctx, store.Slugify(in.Name), func(ctx context.Context, slug string) error {
		course.Slug = slug
		return s.store.Insert(ctx, course)
	})
	if err != nil {
		if errs.IsConflict(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}
	course.Slug = slug

	s.logger.WithFields(map[string]interface{}{
		"course_id": course.ID,
		"actor_id":  actor.ID,
	}).Info("course created")
	return course, nil
}

// Update changes course fields. A replaced featured image is deleted
// after the row is saved; that deletion is best-effort.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, in CourseInput) (*Course, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceCourse, ID: id}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	course, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var oldImage string
	if in.FeaturedImg != nil && course.FeaturedImg != nil && course.FeaturedImg.Path != in.FeaturedImg.Path {
		oldImage = course.FeaturedImg.Path
	}

	course.Name = in.Name
	course.Description = in.Description
	course.Price = in.Price
	course.PriceType = in.PriceType
	course.SiteID = in.SiteID
	course.Published = in.Published
	if in.FeaturedImg != nil {
		course.FeaturedImg = in.FeaturedImg
	}

	if err := s.store.Update(ctx, course); err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}

	if oldImage != "" {
		if err := s.files.Delete(ctx, oldImage); err != nil {
			s.logger.WithError(err).WithField("path", oldImage).Warn("failed to delete replaced course image")
		}
	}
	return course, nil
}

// Delete removes a course with its lessons and enrollments, then
// releases the course image
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{Resource: policy.ResourceCourse, ID: id}); err != nil {
		return err
	}

	course, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCascade(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.engine.Invalidate(policy.ResourceCourse, id)

	if course.FeaturedImg != nil {
		if err := s.files.Delete(ctx, course.FeaturedImg.Path); err != nil {
			s.logger.WithError(err).WithField("path", course.FeaturedImg.Path).Warn("failed to delete course image")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"course_id": id,
		"actor_id":  actor.ID,
	}).Info("course deleted")
	return nil
}

// Count reports how many live courses exist, for the admin dashboard
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
