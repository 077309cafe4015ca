package products

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
	"github.com/makersite/makersite/pkg/store"
)

// Store persists products
type Store interface {
	Insert(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	List(ctx context.Context, clause query.Clause) ([]*Product, int64, error)
	Update(ctx context.Context, product *Product) error
	SoftDelete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

const productColumns = "id, user_id, site_id, name, slug, description, price, price_type, stock, sku, featured_img, featured, published, created_at, updated_at"

// SQLStore implements Store over database/sql
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a product store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert creates a product row. Slug unique violations bubble up for
// the caller's retry loop.
func (s *SQLStore) Insert(ctx context.Context, product *Product) error {
	imgJSON, err := storage.EncodeFileRef(product.FeaturedImg)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO products (user_id, site_id, name, slug, description, price, price_type, stock, sku, featured_img, featured, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		product.UserID, product.SiteID, product.Name, product.Slug, product.Description,
		product.Price, product.PriceType, product.Stock, product.SKU, imgJSON,
		product.Featured, product.Published).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by id, excluding soft-deleted rows
func (s *SQLStore) GetByID(ctx context.Context, id int64) (*Product, error) {
	q := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 AND deleted_at IS NULL`, productColumns)
	return scanProduct(s.db.QueryRowContext(ctx, q, id))
}

// GetBySlug retrieves a product by its public slug
func (s *SQLStore) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	q := fmt.Sprintf(`SELECT %s FROM products WHERE slug = $1 AND deleted_at IS NULL`, productColumns)
	return scanProduct(s.db.QueryRowContext(ctx, q, slug))
}

// List retrieves a shaped page of products together with the total count
func (s *SQLStore) List(ctx context.Context, clause query.Clause) ([]*Product, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", clause.Where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, clause.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	listQuery := fmt.Sprintf("SELECT %s FROM products %s %s LIMIT %d OFFSET %d",
		productColumns, clause.Where, clause.OrderBy, clause.Limit, clause.Offset)
	rows, err := s.db.QueryContext(ctx, listQuery, clause.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		product, err := scanProductFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, total, nil
}

// Update persists mutable product fields
func (s *SQLStore) Update(ctx context.Context, product *Product) error {
	imgJSON, err := storage.EncodeFileRef(product.FeaturedImg)
	if err != nil {
		return err
	}
	q := `
		UPDATE products
		SET name = $1, description = $2, price = $3, price_type = $4, stock = $5,
		    sku = $6, site_id = $7, featured_img = $8, featured = $9, published = $10,
		    updated_at = NOW()
		WHERE id = $11 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		product.Name, product.Description, product.Price, product.PriceType, product.Stock,
		product.SKU, product.SiteID, imgJSON, product.Featured, product.Published,
		product.ID).Scan(&product.UpdatedAt)
	if err == sql.ErrNoRows {
		return errs.NotFound("product")
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// SoftDelete marks the product deleted
func (s *SQLStore) SoftDelete(ctx context.Context, id int64) error {
	q := `UPDATE products SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("product")
	}
	return nil
}

// Count returns the number of live products for the dashboard
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	q := `SELECT COUNT(*) FROM products WHERE deleted_at IS NULL`
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row *sql.Row) (*Product, error) {
	product, err := scanProductFrom(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("product")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func scanProductFrom(row rowScanner) (*Product, error) {
	product := &Product{}
	var imgJSON []byte
	err := row.Scan(&product.ID, &product.UserID, &product.SiteID, &product.Name,
		&product.Slug, &product.Description, &product.Price, &product.PriceType,
		&product.Stock, &product.SKU, &imgJSON, &product.Featured, &product.Published,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if product.FeaturedImg, err = storage.DecodeFileRef(imgJSON); err != nil {
		return nil, err
	}
	return product, nil
}

var _ Store = (*SQLStore)(nil)
