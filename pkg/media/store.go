package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/query"
)

// Store persists media records
type Store interface {
	Insert(ctx context.Context, media *Media) error
	GetByID(ctx context.Context, id int64) (*Media, error)
	List(ctx context.Context, clause query.Clause) ([]*Media, int64, error)
	UpdateTags(ctx context.Context, id int64, tags []string) error
	SoftDelete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

const mediaColumns = "id, user_id, filename, original_name, path, url, size, mime_type, tags, created_at, updated_at"

// SQLStore implements Store over database/sql
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a media store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert creates a media row
func (s *SQLStore) Insert(ctx context.Context, media *Media) error {
	tagsJSON, err := encodeTags(media.Tags)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO media (user_id, filename, original_name, path, url, size, mime_type, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		media.UserID, media.Filename, media.OriginalName, media.Path, media.URL,
		media.Size, media.MimeType, tagsJSON).
		Scan(&media.ID, &media.CreatedAt, &media.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

// GetByID retrieves a media record by id, excluding soft-deleted rows
func (s *SQLStore) GetByID(ctx context.Context, id int64) (*Media, error) {
	q := fmt.Sprintf(`SELECT %s FROM media WHERE id = $1 AND deleted_at IS NULL`, mediaColumns)
	media, err := scanMedia(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("media")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return media, nil
}

// List retrieves a shaped page of media together with the total count
func (s *SQLStore) List(ctx context.Context, clause query.Clause) ([]*Media, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM media %s", clause.Where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, clause.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count media: %w", err)
	}

	listQuery := fmt.Sprintf("SELECT %s FROM media %s %s LIMIT %d OFFSET %d",
		mediaColumns, clause.Where, clause.OrderBy, clause.Limit, clause.Offset)
	rows, err := s.db.QueryContext(ctx, listQuery, clause.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var records []*Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan media: %w", err)
		}
		records = append(records, media)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate media: %w", err)
	}
	return records, total, nil
}

// UpdateTags replaces a record's tag set
func (s *SQLStore) UpdateTags(ctx context.Context, id int64, tags []string) error {
	tagsJSON, err := encodeTags(tags)
	if err != nil {
		return err
	}
	q := `UPDATE media SET tags = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, tagsJSON, id)
	if err != nil {
		return fmt.Errorf("failed to update media tags: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("media")
	}
	return nil
}

// SoftDelete marks the record deleted
func (s *SQLStore) SoftDelete(ctx context.Context, id int64) error {
	q := `UPDATE media SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("media")
	}
	return nil
}

// Count returns the number of live records for the dashboard
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	q := `SELECT COUNT(*) FROM media WHERE deleted_at IS NULL`
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(row rowScanner) (*Media, error) {
	media := &Media{}
	var tagsJSON []byte
	err := row.Scan(&media.ID, &media.UserID, &media.Filename, &media.OriginalName,
		&media.Path, &media.URL, &media.Size, &media.MimeType, &tagsJSON,
		&media.CreatedAt, &media.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &media.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if media.Tags == nil {
		media.Tags = []string{}
	}
	return media, nil
}

func encodeTags(tags []string) (interface{}, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return data, nil
}

var _ Store = (*SQLStore)(nil)
