package sites

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/store"
)

const pageColumns = "id, site_id, title, slug, position, published, created_at, updated_at"

// InsertPage creates a page row. Slug unique violations bubble up for
// the caller's retry loop.
func (s *SQLStore) InsertPage(ctx context.Context, page *Page) error {
	q := `
		INSERT INTO pages (site_id, title, slug, position, published)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, q,
		page.SiteID, page.Title, page.Slug, page.Position, page.Published).
		Scan(&page.ID, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// GetPage retrieves a page by id, excluding soft-deleted rows
func (s *SQLStore) GetPage(ctx context.Context, id int64) (*Page, error) {
	q := fmt.Sprintf(`SELECT %s FROM pages WHERE id = $1 AND deleted_at IS NULL`, pageColumns)
	page := &Page{}
	err := s.db.QueryRowContext(ctx, q, id).Scan(&page.ID, &page.SiteID, &page.Title,
		&page.Slug, &page.Position, &page.Published, &page.CreatedAt, &page.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("page")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return page, nil
}

// ListPages retrieves a site's pages in display order
func (s *SQLStore) ListPages(ctx context.Context, siteID int64) ([]*Page, error) {
	q := fmt.Sprintf(`SELECT %s FROM pages WHERE site_id = $1 AND deleted_at IS NULL ORDER BY position ASC, id ASC`, pageColumns)
	rows, err := s.db.QueryContext(ctx, q, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page := &Page{}
		if err := rows.Scan(&page.ID, &page.SiteID, &page.Title, &page.Slug,
			&page.Position, &page.Published, &page.CreatedAt, &page.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// UpdatePage persists mutable page fields
func (s *SQLStore) UpdatePage(ctx context.Context, page *Page) error {
	q := `
		UPDATE pages
		SET title = $1, position = $2, published = $3, updated_at = NOW()
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, q,
		page.Title, page.Position, page.Published, page.ID).Scan(&page.UpdatedAt)
	if err == sql.ErrNoRows {
		return errs.NotFound("page")
	}
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return nil
}

// DeletePageCascade removes a page's sections and soft-deletes the page
// in one transaction
func (s *SQLStore) DeletePageCascade(ctx context.Context, id int64) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE page_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete page sections: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE pages SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("failed to delete page: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.NotFound("page")
		}
		return nil
	})
}

const sectionColumns = "id, page_id, type, content, position, created_at, updated_at"

// InsertSection creates a section row
func (s *SQLStore) InsertSection(ctx context.Context, section *Section) error {
	contentJSON, err := encodeSectionContent(section)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO sections (page_id, type, content, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		section.PageID, section.Type, contentJSON, section.Position).
		Scan(&section.ID, &section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert section: %w", err)
	}
	return nil
}

// GetSection retrieves a section by id
func (s *SQLStore) GetSection(ctx context.Context, id int64) (*Section, error) {
	q := fmt.Sprintf(`SELECT %s FROM sections WHERE id = $1`, sectionColumns)
	section, err := scanSection(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("section")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get section: %w", err)
	}
	return section, nil
}

// ListSections retrieves a page's sections in display order
func (s *SQLStore) ListSections(ctx context.Context, pageID int64) ([]*Section, error) {
	q := fmt.Sprintf(`SELECT %s FROM sections WHERE page_id = $1 ORDER BY position ASC, id ASC`, sectionColumns)
	rows, err := s.db.QueryContext(ctx, q, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	var sections []*Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

// UpdateSection persists mutable section fields
func (s *SQLStore) UpdateSection(ctx context.Context, section *Section) error {
	contentJSON, err := encodeSectionContent(section)
	if err != nil {
		return err
	}
	q := `
		UPDATE sections
		SET type = $1, content = $2, position = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		section.Type, contentJSON, section.Position, section.ID).Scan(&section.UpdatedAt)
	if err == sql.ErrNoRows {
		return errs.NotFound("section")
	}
	if err != nil {
		return fmt.Errorf("failed to update section: %w", err)
	}
	return nil
}

// DeleteSection removes a section
func (s *SQLStore) DeleteSection(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("section")
	}
	return nil
}

func encodeSectionContent(section *Section) (interface{}, error) {
	if section.Content == nil {
		return nil, nil
	}
	data, err := json.Marshal(section.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal section content: %w", err)
	}
	return data, nil
}

func scanSection(row rowScanner) (*Section, error) {
	section := &Section{}
	var contentJSON []byte
	err := row.Scan(&section.ID, &section.PageID, &section.Type, &contentJSON,
		&section.Position, &section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(contentJSON) > 0 {
		if err := json.Unmarshal(contentJSON, &section.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal section content: %w", err)
		}
	}
	return section, nil
}
