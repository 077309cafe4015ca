package media

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
)

type fakeStore struct {
	records map[int64]*Media
	nextID  int64
	failOn  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[int64]*Media{}, nextID: 1}
}

func (f *fakeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	for _, m := range f.records {
		if m.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Insert(ctx context.Context, media *Media) error {
	if f.failOn != "" && media.OriginalName == f.failOn {
		return fmt.Errorf("forced insert failure")
	}
	media.ID = f.nextID
	f.nextID++
	media.CreatedAt = time.Now()
	media.UpdatedAt = media.CreatedAt
	copied := *media
	f.records[media.ID] = &copied
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*Media, error) {
	m, ok := f.records[id]
	if !ok || m.DeletedAt != nil {
		return nil, errs.NotFound("media")
	}
	copied := *m
	return &copied, nil
}

func (f *fakeStore) List(ctx context.Context, clause query.Clause) ([]*Media, int64, error) {
	var owner int64
	scoped := strings.Contains(clause.Where, "user_id =")
	if scoped {
		// The scope predicate carries an int64; the user_id filter a string
		switch v := clause.Args[0].(type) {
		case int64:
			owner = v
		case string:
			owner, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	var out []*Media
	for _, m := range f.records {
		if m.DeletedAt != nil {
			continue
		}
		if scoped && m.UserID != owner {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) UpdateTags(ctx context.Context, id int64, tags []string) error {
	m, ok := f.records[id]
	if !ok || m.DeletedAt != nil {
		return errs.NotFound("media")
	}
	m.Tags = tags
	return nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, id int64) error {
	m, ok := f.records[id]
	if !ok || m.DeletedAt != nil {
		return errs.NotFound("media")
	}
	now := time.Now()
	m.DeletedAt = &now
	return nil
}

type fakeDirectory struct {
	store *fakeStore
}

func (d fakeDirectory) Owner(ctx context.Context, r policy.Resource, id int64) (int64, error) {
	if r == policy.ResourceMedia {
		if m, ok := d.store.records[id]; ok && m.DeletedAt == nil {
			return m.UserID, nil
		}
	}
	return 0, errs.NotFound(string(r))
}

func (d fakeDirectory) Parent(ctx context.Context, r policy.Resource, id int64) (int64, error) {
	return 0, errs.NotFound(string(r))
}

type fakeFiles struct {
	stored  map[string][]byte
	deleted []string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{stored: map[string][]byte{}}
}

func (f *fakeFiles) Store(ctx context.Context, prefix, name string, content io.Reader) (*storage.StoredFile, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	path := prefix + "/" + name
	f.stored[path] = data
	return &storage.StoredFile{Path: path, URL: "/storage/" + path, Size: int64(len(data))}, nil
}

func (f *fakeFiles) Delete(ctx context.Context, path string) error {
	delete(f.stored, path)
	f.deleted = append(f.deleted, path)
	return nil
}

var (
	adminActor = policy.Actor{ID: 1, Role: policy.RoleAdmin, Status: policy.StatusActive}
	ownerActor = policy.Actor{ID: 100, Role: policy.RoleRegular, Status: policy.StatusActive}
	otherActor = policy.Actor{ID: 200, Role: policy.RoleRegular, Status: policy.StatusActive}
)

func newTestService() (*Service, *fakeStore, *fakeFiles) {
	st := newFakeStore()
	files := newFakeFiles()
	engine := policy.NewEngine(fakeDirectory{store: st}, 0)
	return NewService(st, engine, files, observability.NopLogger(), nil), st, files
}

func TestUpload(t *testing.T) {
	s, _, files := newTestService()

	media, err := s.Upload(context.Background(), ownerActor, "photo.jpg", "image/jpeg", strings.NewReader("fake image data"))
	require.NoError(t, err)

	assert.Equal(t, ownerActor.ID, media.UserID)
	assert.Equal(t, "photo.jpg", media.OriginalName)
	assert.NotEqual(t, "photo.jpg", media.Filename)
	assert.True(t, strings.HasSuffix(media.Filename, ".jpg"))
	assert.Equal(t, int64(len("fake image data")), media.Size)
	assert.Contains(t, media.Path, "media/100/")
	assert.Len(t, files.stored, 1)
}

func TestUploadValidation(t *testing.T) {
	s, _, files := newTestService()

	_, err := s.Upload(context.Background(), ownerActor, "malware.exe", "application/octet-stream", strings.NewReader("x"))
	require.True(t, errs.IsValidation(err))
	assert.Empty(t, files.stored)

	_, err = s.Upload(context.Background(), ownerActor, "", "", strings.NewReader("x"))
	assert.True(t, errs.IsValidation(err))
}

func TestUploadBannedActor(t *testing.T) {
	s, _, _ := newTestService()
	banned := policy.Actor{ID: 100, Role: policy.RoleRegular, Status: policy.StatusBanned}

	_, err := s.Upload(context.Background(), banned, "photo.jpg", "image/jpeg", strings.NewReader("x"))
	assert.True(t, errs.IsAccessDenied(err))
}

func TestUploadCleansUpOnInsertFailure(t *testing.T) {
	s, st, files := newTestService()
	st.failOn = "doomed.png"

	_, err := s.Upload(context.Background(), ownerActor, "doomed.png", "image/png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Empty(t, files.stored)
}

func TestBulkUpload(t *testing.T) {
	s, st, _ := newTestService()
	st.failOn = "bad.png"

	items := []UploadItem{
		{OriginalName: "a.png", MimeType: "image/png", Content: strings.NewReader("a")},
		{OriginalName: "b.png", MimeType: "image/png", Content: strings.NewReader("b")},
		{OriginalName: "bad.png", MimeType: "image/png", Content: strings.NewReader("c")},
		{OriginalName: "nope.exe", MimeType: "application/octet-stream", Content: strings.NewReader("d")},
	}
	result, err := s.BulkUpload(context.Background(), ownerActor, items)
	require.NoError(t, err)

	assert.Len(t, result.Uploaded, 2)
	assert.Contains(t, result.Failed, "bad.png")
	assert.Contains(t, result.Failed, "nope.exe")

	t.Run("empty batch rejected", func(t *testing.T) {
		_, err := s.BulkUpload(context.Background(), ownerActor, nil)
		assert.True(t, errs.IsValidation(err))
	})
}

func TestListScoping(t *testing.T) {
	s, _, _ := newTestService()
	_, err := s.Upload(context.Background(), ownerActor, "mine.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = s.Upload(context.Background(), otherActor, "theirs.png", "image/png", strings.NewReader("y"))
	require.NoError(t, err)

	page, err := s.List(context.Background(), ownerActor, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	adminPage, err := s.List(context.Background(), adminActor, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), adminPage.Total)
}

func TestAdminListsOneUsersMedia(t *testing.T) {
	s, _, _ := newTestService()
	_, err := s.Upload(context.Background(), ownerActor, "mine.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = s.Upload(context.Background(), otherActor, "theirs.png", "image/png", strings.NewReader("y"))
	require.NoError(t, err)

	page, err := s.List(context.Background(), adminActor, query.Params{
		Filters: map[string]string{"user_id": strconv.FormatInt(ownerActor.ID, 10)},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, ownerActor.ID, page.Items[0].UserID)
}

func TestGetScoping(t *testing.T) {
	s, _, _ := newTestService()
	media, err := s.Upload(context.Background(), ownerActor, "mine.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = s.Get(context.Background(), otherActor, media.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestUpdateTags(t *testing.T) {
	s, _, _ := newTestService()
	media, err := s.Upload(context.Background(), ownerActor, "mine.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)

	updated, err := s.UpdateTags(context.Background(), ownerActor, media.ID, []string{"logo", "header"})
	require.NoError(t, err)
	assert.Equal(t, []string{"logo", "header"}, updated.Tags)

	_, err = s.UpdateTags(context.Background(), otherActor, media.ID, []string{"steal"})
	assert.True(t, errs.IsAccessDenied(err))
}

func TestDeleteReleasesFile(t *testing.T) {
	s, _, files := newTestService()
	media, err := s.Upload(context.Background(), ownerActor, "mine.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)

	t.Run("outsiders denied", func(t *testing.T) {
		err := s.Delete(context.Background(), otherActor, media.ID)
		assert.True(t, errs.IsAccessDenied(err))
	})

	require.NoError(t, s.Delete(context.Background(), ownerActor, media.ID))
	assert.Empty(t, files.stored)
	assert.Equal(t, []string{media.Path}, files.deleted)

	_, err = s.Get(context.Background(), ownerActor, media.ID)
	assert.True(t, errs.IsNotFound(err))
}
