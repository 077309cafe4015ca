// Package jobs runs the scheduled maintenance work: purging
// soft-deleted rows past their retention window, releasing their
// stored files, and trimming expired tokens and old audit events.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/auth"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/storage"
)

// PurgeStats reports what one purge run removed
type PurgeStats struct {
	Rows          map[string]int64
	FilesReleased int
	TokensDeleted int64
	EventsDeleted int64
}

// Purger hard-deletes soft-deleted rows older than the retention
// window. Children are purged before parents so foreign keys hold.
type Purger struct {
	db        *sql.DB
	files     storage.FileStore
	tokens    auth.Store
	audit     audit.Recorder
	retention time.Duration
	logger    *observability.Logger
}

// NewPurger creates a purge job
func NewPurger(db *sql.DB, files storage.FileStore, tokens auth.Store, recorder audit.Recorder, retention time.Duration, logger *observability.Logger) *Purger {
	return &Purger{
		db:        db,
		files:     files,
		tokens:    tokens,
		audit:     recorder,
		retention: retention,
		logger:    logger,
	}
}

// fileColumns names the JSON file-reference columns per table
var fileColumns = []struct {
	table   string
	columns []string
}{
	{"sites", []string{"logo", "favicon"}},
	{"products", []string{"featured_img"}},
	{"courses", []string{"featured_img"}},
}

// Run executes one purge pass
func (p *Purger) Run(ctx context.Context) (PurgeStats, error) {
	cutoff := time.Now().UTC().Add(-p.retention)
	stats := PurgeStats{Rows: make(map[string]int64)}

	// Media rows carry their storage path directly
	mediaPaths, err := p.collectMediaPaths(ctx, cutoff)
	if err != nil {
		return stats, err
	}
	var paths []string
	paths = append(paths, mediaPaths...)

	for _, fc := range fileColumns {
		refPaths, err := p.collectRefPaths(ctx, fc.table, fc.columns, cutoff)
		if err != nil {
			return stats, err
		}
		paths = append(paths, refPaths...)
	}

	// Children before parents: lessons under courses, sections are
	// already hard-deleted, pages under sites, then owner-level rows,
	// then users that nothing references anymore.
	order := []struct {
		table string
		query string
	}{
		{"lessons", `DELETE FROM lessons WHERE deleted_at IS NOT NULL AND deleted_at < $1`},
		{"pages", `DELETE FROM pages WHERE deleted_at IS NOT NULL AND deleted_at < $1`},
		{"media", `DELETE FROM media WHERE deleted_at IS NOT NULL AND deleted_at < $1`},
		{"products", `DELETE FROM products WHERE deleted_at IS NOT NULL AND deleted_at < $1`},
		{"courses", `DELETE FROM courses WHERE deleted_at IS NOT NULL AND deleted_at < $1
			AND NOT EXISTS (SELECT 1 FROM lessons l WHERE l.course_id = courses.id)
			AND NOT EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = courses.id)`},
		{"sites", `DELETE FROM sites WHERE deleted_at IS NOT NULL AND deleted_at < $1
			AND NOT EXISTS (SELECT 1 FROM pages pg WHERE pg.site_id = sites.id)
			AND NOT EXISTS (SELECT 1 FROM products pr WHERE pr.site_id = sites.id)
			AND NOT EXISTS (SELECT 1 FROM courses c WHERE c.site_id = sites.id)`},
		{"users", `DELETE FROM users WHERE deleted_at IS NOT NULL AND deleted_at < $1
			AND NOT EXISTS (SELECT 1 FROM sites s WHERE s.user_id = users.id)
			AND NOT EXISTS (SELECT 1 FROM products pr WHERE pr.user_id = users.id)
			AND NOT EXISTS (SELECT 1 FROM courses c WHERE c.user_id = users.id)
			AND NOT EXISTS (SELECT 1 FROM media m WHERE m.user_id = users.id)
			AND NOT EXISTS (SELECT 1 FROM enrollments e WHERE e.user_id = users.id)
			AND NOT EXISTS (SELECT 1 FROM api_tokens t WHERE t.user_id = users.id)`},
	}

	for _, step := range order {
		res, err := p.db.ExecContext(ctx, step.query, cutoff)
		if err != nil {
			return stats, fmt.Errorf("purging %s: %w", step.table, err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return stats, fmt.Errorf("purging %s: %w", step.table, err)
		}
		stats.Rows[step.table] = deleted
	}

	// Rows are gone; file releases are best effort from here
	for _, path := range paths {
		if err := p.files.Delete(ctx, path); err != nil {
			p.logger.WithError(err).WithField("path", path).Warn("failed to release purged file")
			continue
		}
		stats.FilesReleased++
	}

	if p.tokens != nil {
		deleted, err := p.tokens.DeleteExpired(ctx, time.Now().UTC())
		if err != nil {
			p.logger.WithError(err).Warn("failed to delete expired tokens")
		} else {
			stats.TokensDeleted = deleted
		}
	}

	if p.audit != nil {
		deleted, err := p.audit.Cleanup(ctx, p.retention)
		if err != nil {
			p.logger.WithError(err).Warn("failed to clean up audit events")
		} else {
			stats.EventsDeleted = deleted
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"rows":   stats.Rows,
		"files":  stats.FilesReleased,
		"tokens": stats.TokensDeleted,
		"events": stats.EventsDeleted,
	}).Info("purge completed")
	return stats, nil
}

func (p *Purger) collectMediaPaths(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT path FROM media WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("collecting media paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scanning media path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

func (p *Purger) collectRefPaths(ctx context.Context, table string, columns []string, cutoff time.Time) ([]string, error) {
	var paths []string
	for _, column := range columns {
		q := fmt.Sprintf(`SELECT %s FROM %s WHERE deleted_at IS NOT NULL AND deleted_at < $1 AND %s IS NOT NULL`,
			column, table, column)
		rows, err := p.db.QueryContext(ctx, q, cutoff)
		if err != nil {
			return nil, fmt.Errorf("collecting %s.%s refs: %w", table, column, err)
		}

		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning %s.%s ref: %w", table, column, err)
			}
			ref, err := storage.DecodeFileRef(raw)
			if err != nil || ref == nil || ref.Path == "" {
				continue
			}
			paths = append(paths, ref.Path)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return paths, nil
}
