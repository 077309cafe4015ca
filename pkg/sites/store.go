package sites

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
	"github.com/makersite/makersite/pkg/store"
)

// Store persists sites, pages and sections
type Store interface {
	Insert(ctx context.Context, site *Site) error
	GetByID(ctx context.Context, id int64) (*Site, error)
	GetByAddress(ctx context.Context, address string) (*Site, error)
	List(ctx context.Context, clause query.Clause) ([]*Site, int64, error)
	Update(ctx context.Context, site *Site) error
	SetPublished(ctx context.Context, id int64, published bool) error
	DeleteCascade(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)

	InsertPage(ctx context.Context, page *Page) error
	GetPage(ctx context.Context, id int64) (*Page, error)
	ListPages(ctx context.Context, siteID int64) ([]*Page, error)
	UpdatePage(ctx context.Context, page *Page) error
	DeletePageCascade(ctx context.Context, id int64) error

	InsertSection(ctx context.Context, section *Section) error
	GetSection(ctx context.Context, id int64) (*Section, error)
	ListSections(ctx context.Context, pageID int64) ([]*Section, error)
	UpdateSection(ctx context.Context, section *Section) error
	DeleteSection(ctx context.Context, id int64) error
}

const siteColumns = "id, user_id, name, address, slug, description, settings, seo, logo, favicon, published, created_at, updated_at"

// SQLStore implements Store over database/sql
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a site store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert creates a site row. Unique violations on address or slug
// bubble up for the caller's retry and conflict handling.
func (s *SQLStore) Insert(ctx context.Context, site *Site) error {
	settingsJSON, seoJSON, logoJSON, faviconJSON, err := encodeSiteJSON(site)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO sites (user_id, name, address, slug, description, settings, seo, logo, favicon, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		site.UserID, site.Name, site.Address, site.Slug, site.Description,
		settingsJSON, seoJSON, logoJSON, faviconJSON, site.Published).
		Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert site: %w", err)
	}
	return nil
}

// GetByID retrieves a site by id, excluding soft-deleted rows
func (s *SQLStore) GetByID(ctx context.Context, id int64) (*Site, error) {
	q := fmt.Sprintf(`SELECT %s FROM sites WHERE id = $1 AND deleted_at IS NULL`, siteColumns)
	return scanSite(s.db.QueryRowContext(ctx, q, id))
}

// GetByAddress retrieves a site by its unique address
func (s *SQLStore) GetByAddress(ctx context.Context, address string) (*Site, error) {
	q := fmt.Sprintf(`SELECT %s FROM sites WHERE address = $1 AND deleted_at IS NULL`, siteColumns)
	return scanSite(s.db.QueryRowContext(ctx, q, address))
}

// List retrieves a shaped page of sites together with the total count
func (s *SQLStore) List(ctx context.Context, clause query.Clause) ([]*Site, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sites %s", clause.Where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, clause.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sites: %w", err)
	}

	listQuery := fmt.Sprintf("SELECT %s FROM sites %s %s LIMIT %d OFFSET %d",
		siteColumns, clause.Where, clause.OrderBy, clause.Limit, clause.Offset)
	rows, err := s.db.QueryContext(ctx, listQuery, clause.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []*Site
	for rows.Next() {
		site, err := scanSiteRow(rows)
		if err != nil {
			return nil, 0, err
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sites: %w", err)
	}
	return sites, total, nil
}

// Update persists mutable site fields
func (s *SQLStore) Update(ctx context.Context, site *Site) error {
	settingsJSON, seoJSON, logoJSON, faviconJSON, err := encodeSiteJSON(site)
	if err != nil {
		return err
	}
	q := `
		UPDATE sites
		SET name = $1, description = $2, settings = $3, seo = $4, logo = $5, favicon = $6, updated_at = NOW()
		WHERE id = $7 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		site.Name, site.Description, settingsJSON, seoJSON, logoJSON, faviconJSON, site.ID).
		Scan(&site.UpdatedAt)
	if err == sql.ErrNoRows {
		return errs.NotFound("site")
	}
	if err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}
	return nil
}

// SetPublished flips a site's published flag
func (s *SQLStore) SetPublished(ctx context.Context, id int64, published bool) error {
	q := `UPDATE sites SET published = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, published, id)
	if err != nil {
		return fmt.Errorf("failed to set site published: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("site")
	}
	return nil
}

// DeleteCascade soft-deletes the site and its pages and removes their
// sections in a single transaction, so a partial failure leaves the
// tree intact.
func (s *SQLStore) DeleteCascade(ctx context.Context, id int64) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		q := `
			DELETE FROM sections
			WHERE page_id IN (SELECT id FROM pages WHERE site_id = $1)
		`
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete site sections: %w", err)
		}
		q = `UPDATE pages SET deleted_at = NOW() WHERE site_id = $1 AND deleted_at IS NULL`
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete site pages: %w", err)
		}
		q = `UPDATE sites SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
		res, err := tx.ExecContext(ctx, q, id)
		if err != nil {
			return fmt.Errorf("failed to delete site: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.NotFound("site")
		}
		return nil
	})
}

// Count returns the number of live sites for the dashboard
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	q := `SELECT COUNT(*) FROM sites WHERE deleted_at IS NULL`
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sites: %w", err)
	}
	return n, nil
}

func encodeSiteJSON(site *Site) (settings, seo, logo, favicon interface{}, err error) {
	if site.Settings != nil {
		if settings, err = json.Marshal(site.Settings); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to marshal settings: %w", err)
		}
	}
	if site.SEO != nil {
		if seo, err = json.Marshal(site.SEO); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to marshal seo: %w", err)
		}
	}
	if logo, err = storage.EncodeFileRef(site.Logo); err != nil {
		return nil, nil, nil, nil, err
	}
	if favicon, err = storage.EncodeFileRef(site.Favicon); err != nil {
		return nil, nil, nil, nil, err
	}
	return settings, seo, logo, favicon, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSite(row *sql.Row) (*Site, error) {
	site, err := scanSiteFrom(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("site")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

func scanSiteRow(rows *sql.Rows) (*Site, error) {
	site, err := scanSiteFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan site: %w", err)
	}
	return site, nil
}

func scanSiteFrom(row rowScanner) (*Site, error) {
	site := &Site{}
	var settingsJSON, seoJSON, logoJSON, faviconJSON []byte
	err := row.Scan(&site.ID, &site.UserID, &site.Name, &site.Address, &site.Slug,
		&site.Description, &settingsJSON, &seoJSON, &logoJSON, &faviconJSON,
		&site.Published, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &site.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	if len(seoJSON) > 0 {
		if err := json.Unmarshal(seoJSON, &site.SEO); err != nil {
			return nil, fmt.Errorf("failed to unmarshal seo: %w", err)
		}
	}
	if site.Logo, err = storage.DecodeFileRef(logoJSON); err != nil {
		return nil, err
	}
	if site.Favicon, err = storage.DecodeFileRef(faviconJSON); err != nil {
		return nil, err
	}
	return site, nil
}

var _ Store = (*SQLStore)(nil)
