package products

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
)

type fakeStore struct {
	products map[int64]*Product
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: map[int64]*Product{}, nextID: 1}
}

func (f *fakeStore) Insert(ctx context.Context, product *Product) error {
	for _, p := range f.products {
		if p.Slug == product.Slug && p.DeletedAt == nil {
			return &pq.Error{Code: "23505"}
		}
	}
	product.ID = f.nextID
	f.nextID++
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	copied := *product
	f.products[product.ID] = &copied
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*Product, error) {
	p, ok := f.products[id]
	if !ok || p.DeletedAt != nil {
		return nil, errs.NotFound("product")
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	for _, p := range f.products {
		if p.Slug == slug && p.DeletedAt == nil {
			copied := *p
			return &copied, nil
		}
	}
	return nil, errs.NotFound("product")
}

func (f *fakeStore) List(ctx context.Context, clause query.Clause) ([]*Product, int64, error) {
	var owner int64
	scoped := strings.Contains(clause.Where, "user_id =")
	if scoped {
		owner = clause.Args[0].(int64)
	}
	published := strings.Contains(clause.Where, "published =")
	featured := strings.Contains(clause.Where, "featured =")
	var out []*Product
	for _, p := range f.products {
		if p.DeletedAt != nil {
			continue
		}
		if scoped && p.UserID != owner {
			continue
		}
		if published && !p.Published {
			continue
		}
		if featured && !p.Featured {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) Update(ctx context.Context, product *Product) error {
	if _, ok := f.products[product.ID]; !ok {
		return errs.NotFound("product")
	}
	copied := *product
	f.products[product.ID] = &copied
	return nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, id int64) error {
	p, ok := f.products[id]
	if !ok || p.DeletedAt != nil {
		return errs.NotFound("product")
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

func (f *fakeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	for _, p := range f.products {
		if p.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

type fakeDirectory struct {
	store *fakeStore
}

func (d fakeDirectory) Owner(ctx context.Context, r policy.Resource, id int64) (int64, error) {
	if r == policy.ResourceProduct {
		if p, ok := d.store.products[id]; ok && p.DeletedAt == nil {
			return p.UserID, nil
		}
	}
	return 0, errs.NotFound(string(r))
}

func (d fakeDirectory) Parent(ctx context.Context, r policy.Resource, id int64) (int64, error) {
	return 0, errs.NotFound(string(r))
}

type fakeFiles struct {
	deleted []string
}

func (f *fakeFiles) Store(ctx context.Context, prefix, name string, content io.Reader) (*storage.StoredFile, error) {
	return &storage.StoredFile{Path: prefix + "/" + name, URL: "/storage/" + prefix + "/" + name}, nil
}

func (f *fakeFiles) Delete(ctx context.Context, path string) error {
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
	files := &fakeFiles{}
	engine := policy.NewEngine(fakeDirectory{store: st}, 0)
	return NewService(st, engine, files, observability.NopLogger()), st, files
}

func fixedPrice(name string) Input {
	return Input{Name: name, Price: 1999, PriceType: PriceTypeFixed}
}

func TestCreateProduct(t *testing.T) {
	s, _, _ := newTestService()

	product, err := s.Create(context.Background(), ownerActor, fixedPrice("Leather Wallet"))
	require.NoError(t, err)
	assert.Equal(t, ownerActor.ID, product.UserID)
	assert.Equal(t, "leather-wallet", product.Slug)

	t.Run("slug collision gets a suffix", func(t *testing.T) {
		dup, err := s.Create(context.Background(), otherActor, fixedPrice("Leather Wallet"))
		require.NoError(t, err)
		assert.Equal(t, "leather-wallet-2", dup.Slug)
	})
}

func TestCreateProductValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing name", Input{PriceType: PriceTypeFixed, Price: 100}, "name"},
		{"bad price type", Input{Name: "X", PriceType: 9}, "price_type"},
		{"fixed without price", Input{Name: "X", PriceType: PriceTypeFixed}, "price"},
		{"free with price", Input{Name: "X", PriceType: PriceTypeFree, Price: 100}, "price"},
		{"negative stock", Input{Name: "X", PriceType: PriceTypeFree, Stock: intPtr(-1)}, "stock"},
	}
	s, _, _ := newTestService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), ownerActor, tt.in)
			require.True(t, errs.IsValidation(err))
			assert.Contains(t, errs.DetailsOf(err), tt.field)
		})
	}
}

func intPtr(n int) *int { return &n }

func TestGetProductScoping(t *testing.T) {
	s, _, _ := newTestService()
	product, err := s.Create(context.Background(), ownerActor, fixedPrice("Mine"))
	require.NoError(t, err)

	_, err = s.Get(context.Background(), otherActor, product.ID)
	assert.True(t, errs.IsNotFound(err))

	_, err = s.Get(context.Background(), adminActor, product.ID)
	assert.NoError(t, err)
}

func TestListProductsScoping(t *testing.T) {
	s, _, _ := newTestService()
	_, err := s.Create(context.Background(), ownerActor, fixedPrice("Mine"))
	require.NoError(t, err)
	_, err = s.Create(context.Background(), otherActor, fixedPrice("Theirs"))
	require.NoError(t, err)

	page, err := s.List(context.Background(), ownerActor, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	adminPage, err := s.List(context.Background(), adminActor, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), adminPage.Total)
}

func TestPublicListings(t *testing.T) {
	s, _, _ := newTestService()

	in := fixedPrice("Visible")
	in.Published = true
	in.Featured = true
	_, err := s.Create(context.Background(), ownerActor, in)
	require.NoError(t, err)

	hidden := fixedPrice("Hidden")
	_, err = s.Create(context.Background(), ownerActor, hidden)
	require.NoError(t, err)

	plain := fixedPrice("Plain")
	plain.Published = true
	_, err = s.Create(context.Background(), ownerActor, plain)
	require.NoError(t, err)

	search, err := s.Search(context.Background(), query.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), search.Total)

	featured, err := s.Featured(context.Background(), query.Params{})
	require.NoError(t, err)
	require.Equal(t, int64(1), featured.Total)
	assert.Equal(t, "Visible", featured.Items[0].Name)
}

func TestPublicGet(t *testing.T) {
	s, _, _ := newTestService()
	in := fixedPrice("Published Thing")
	in.Published = true
	product, err := s.Create(context.Background(), ownerActor, in)
	require.NoError(t, err)

	got, err := s.PublicGet(context.Background(), product.Slug)
	require.NoError(t, err)
	assert.Equal(t, product.ID, got.ID)

	draft, err := s.Create(context.Background(), ownerActor, fixedPrice("Draft Thing"))
	require.NoError(t, err)
	_, err = s.PublicGet(context.Background(), draft.Slug)
	assert.True(t, errs.IsNotFound(err))
}

func TestUpdateProductReplacesImage(t *testing.T) {
	s, st, files := newTestService()
	product, err := s.Create(context.Background(), ownerActor, fixedPrice("Pictured"))
	require.NoError(t, err)
	st.products[product.ID].FeaturedImg = &storage.FileRef{Path: "products/old.png"}

	in := fixedPrice("Pictured")
	in.FeaturedImg = &storage.FileRef{Path: "products/new.png"}
	updated, err := s.Update(context.Background(), ownerActor, product.ID, in)
	require.NoError(t, err)

	// Exactly one stored file remains referenced after a replacement.
	assert.Equal(t, "products/new.png", updated.FeaturedImg.Path)
	assert.Equal(t, []string{"products/old.png"}, files.deleted)

	t.Run("outsiders cannot update", func(t *testing.T) {
		_, err := s.Update(context.Background(), otherActor, product.ID, in)
		assert.True(t, errs.IsAccessDenied(err))
	})
}

func TestDeleteProductReleasesImage(t *testing.T) {
	s, st, files := newTestService()
	product, err := s.Create(context.Background(), ownerActor, fixedPrice("Doomed"))
	require.NoError(t, err)
	st.products[product.ID].FeaturedImg = &storage.FileRef{Path: "products/doomed.png"}

	t.Run("banned owner cannot delete", func(t *testing.T) {
		banned := policy.Actor{ID: 100, Role: policy.RoleRegular, Status: policy.StatusBanned}
		err := s.Delete(context.Background(), banned, product.ID)
		assert.True(t, errs.IsAccessDenied(err))
	})

	require.NoError(t, s.Delete(context.Background(), ownerActor, product.ID))
	assert.Contains(t, files.deleted, "products/doomed.png")

	_, err = s.Get(context.Background(), ownerActor, product.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestCountIsAdminOnly(t *testing.T) {
	s, _, _ := newTestService()
	_, err := s.Create(context.Background(), ownerActor, fixedPrice("Mine"))
	require.NoError(t, err)
	_, err = s.Create(context.Background(), otherActor, fixedPrice("Theirs"))
	require.NoError(t, err)

	_, err = s.Count(context.Background(), ownerActor)
	assert.True(t, errs.IsAccessDenied(err))

	n, err := s.Count(context.Background(), adminActor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
