package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/policy"
)

// refColumn locates the owner or parent foreign key for a resource.
// softDelete marks tables that carry a deleted_at column; sections and
// enrollments are hard-deleted with their parents and have none.
type refColumn struct {
	table      string
	column     string
	softDelete bool
}

// ownerColumns maps directly-owned resources to their owner column.
var ownerColumns = map[policy.Resource]refColumn{
	policy.ResourceSite:       {"sites", "user_id", true},
	policy.ResourceProduct:    {"products", "user_id", true},
	policy.ResourceCourse:     {"courses", "user_id", true},
	policy.ResourceMedia:      {"media", "user_id", true},
	policy.ResourceEnrollment: {"enrollments", "user_id", false},
}

// parentColumns maps nested resources to their parent-id column.
var parentColumns = map[policy.Resource]refColumn{
	policy.ResourcePage:    {"pages", "site_id", true},
	policy.ResourceSection: {"sections", "page_id", false},
	policy.ResourceLesson:  {"lessons", "course_id", true},
}

// Directory is the SQL implementation of policy.Directory. It reads the
// owner and parent foreign keys directly rather than loading whole rows.
type Directory struct {
	db *sql.DB
}

// NewDirectory creates a directory over the given database
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// Owner implements policy.Directory
func (d *Directory) Owner(ctx context.Context, resource policy.Resource, id int64) (int64, error) {
	cols, ok := ownerColumns[resource]
	if !ok {
		return 0, errs.Internal(fmt.Errorf("resource %q has no direct owner column", resource))
	}
	return d.lookup(ctx, cols, id, resource)
}

// Parent implements policy.Directory
func (d *Directory) Parent(ctx context.Context, resource policy.Resource, id int64) (int64, error) {
	cols, ok := parentColumns[resource]
	if !ok {
		return 0, errs.Internal(fmt.Errorf("resource %q has no parent column", resource))
	}
	return d.lookup(ctx, cols, id, resource)
}

func (d *Directory) lookup(ctx context.Context, cols refColumn, id int64, resource policy.Resource) (int64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", cols.column, cols.table)
	if cols.softDelete {
		query += " AND deleted_at IS NULL"
	}

	var value int64
	err := d.db.QueryRowContext(ctx, query, id).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, errs.NotFound(string(resource))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s for %s %d: %w", cols.column, cols.table, id, err)
	}
	return value, nil
}
