package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
)

// bulkUploadConcurrency bounds parallel writes to the storage backend
const bulkUploadConcurrency = 4

// listSpec shapes media library listings
var listSpec = query.Spec{
	IDColumn:      "id",
	OwnerColumn:   "user_id",
	DeletedColumn: "deleted_at",
	SearchColumns: []string{"original_name", "filename"},
	FilterColumns: map[string]string{"type": "mime_type", "user_id": "user_id"},
	SortColumns:   map[string]string{"size": "size", "original_name": "original_name", "created_at": "created_at"},
	DefaultSort:   "created_at",
}

// Service implements media library operations with policy enforcement
type Service struct {
	store   Store
	engine  *policy.Engine
	files   storage.FileStore
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a media service. metrics may be nil.
func NewService(st Store, engine *policy.Engine, files storage.FileStore, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: st, engine: engine, files: files, logger: logger, metrics: metrics}
}

// Upload stores a file under a generated name and records it in the
// actor's library
func (s *Service) Upload(ctx context.Context, actor policy.Actor, originalName, mimeType string, content io.Reader) (*Media, error) {
	if err := s.engine.AuthorizeCreate(actor); err != nil {
		return nil, err
	}
	if details := validateUpload(originalName); details != nil {
		return nil, errs.Validation(details)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	filename := uuid.NewString() + ext
	prefix := fmt.Sprintf("media/%d", actor.ID)

	stored, err := s.files.Store(ctx, prefix, filename, content)
	if err != nil {
		return nil, errs.Internal(err)
	}

	media := &Media{
		UserID:       actor.ID,
		Filename:     filename,
		OriginalName: originalName,
		Path:         stored.Path,
		URL:          stored.URL,
		Size:         stored.Size,
		MimeType:     mimeType,
		Tags:         []string{},
	}
	if err := s.store.Insert(ctx, media); err != nil {
		// The row is the source of truth; without it the stored file
		// must not survive.
		if delErr := s.files.Delete(ctx, stored.Path); delErr != nil {
			s.logger.WithError(delErr).WithField("path", stored.Path).Warn("failed to clean up stored file")
		}
		return nil, errs.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.FilesStored.Inc()
	}
	s.logger.WithFields(map[string]interface{}{
		"media_id": media.ID,
		"actor_id": actor.ID,
		"size":     media.Size,
	}).Info("media uploaded")
	return media, nil
}

// UploadItem is one file in a bulk upload
type UploadItem struct {
	OriginalName string
	MimeType     string
	Content      io.Reader
}

// BulkResult reports the outcome per uploaded file
type BulkResult struct {
	Uploaded []*Media          `json:"uploaded"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// BulkUpload stores several files concurrently. Individual failures do
// not abort the batch; they are reported per file name.
func (s *Service) BulkUpload(ctx context.Context, actor policy.Actor, items []UploadItem) (*BulkResult, error) {
	if err := s.engine.AuthorizeCreate(actor); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errs.Validation(map[string]string{"files": "at least one file is required"})
	}

	result := &BulkResult{Uploaded: []*Media{}, Failed: map[string]string{}}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkUploadConcurrency)
	for _, item := range items {
		g.Go(func() error {
			media, err := s.Upload(ctx, actor, item.OriginalName, item.MimeType, item.Content)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[item.OriginalName] = err.Error()
				return nil
			}
			result.Uploaded = append(result.Uploaded, media)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errs.Internal(err)
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}

// List returns the actor's media library, or everything for admins
func (s *Service) List(ctx context.Context, actor policy.Actor, params query.Params) (query.Page[*Media], error) {
	clause := listSpec.Shape(s.engine.ScopeFor(actor, policy.ResourceMedia), params)
	items, total, err := s.store.List(ctx, clause)
	if err != nil {
		return query.Page[*Media]{}, errs.Internal(err)
	}
	return query.NewPage(items, total, clause), nil
}

// Get returns a single media record inside the actor's scope
func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (*Media, error) {
	media, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.ScopeFor(actor, policy.ResourceMedia).Contains(media.UserID) {
		return nil, errs.NotFound("media")
	}
	return media, nil
}

// UpdateTags replaces a record's tags
func (s *Service) UpdateTags(ctx context.Context, actor policy.Actor, id int64, tags []string) (*Media, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceMedia, ID: id}); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	if err := s.store.UpdateTags(ctx, id, tags); err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}
	return s.store.GetByID(ctx, id)
}

// Delete removes a media record and releases its stored file
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{Resource: policy.ResourceMedia, ID: id}); err != nil {
		return err
	}

	media, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.engine.Invalidate(policy.ResourceMedia, id)

	if err := s.files.Delete(ctx, media.Path); err != nil {
		s.logger.WithError(err).WithField("path", media.Path).Warn("failed to delete stored file")
	} else if s.metrics != nil {
		s.metrics.FilesDeleted.Inc()
	}
	return nil
}

// Count reports how many live media exist, for the admin dashboard
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
