package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/makersite/makersite/pkg/observability"
)

// Recorder persists and queries audit events
type Recorder interface {
	Record(ctx context.Context, event Event) error
	Search(ctx context.Context, filter SearchFilter) ([]*Event, error)
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// SQLRecorder stores audit events in the audit_events table
type SQLRecorder struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewSQLRecorder creates a database-backed audit recorder
func NewSQLRecorder(db *sql.DB, logger *observability.Logger) *SQLRecorder {
	return &SQLRecorder{db: db, logger: logger}
}

// Record writes one event. Failures are logged and returned, but callers
// generally treat recording as best-effort.
func (r *SQLRecorder) Record(ctx context.Context, event Event) error {
	var details interface{}
	if event.Details != nil {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
		details = raw
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	q := `INSERT INTO audit_events (type, actor_id, target_id, message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, q, string(event.Type), event.ActorID, event.TargetID, event.Message, details, createdAt); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).WithField("type", string(event.Type)).Error("failed to record audit event")
		}
		return fmt.Errorf("recording audit event: %w", err)
	}
	return nil
}

// Search returns events matching the filter, newest first
func (r *SQLRecorder) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != "" {
		conditions = append(conditions, "type = "+arg(string(filter.Type)))
	}
	if filter.ActorID != 0 {
		conditions = append(conditions, "actor_id = "+arg(filter.ActorID))
	}
	if filter.Since != nil {
		conditions = append(conditions, "created_at >= "+arg(*filter.Since))
	}
	if filter.Until != nil {
		conditions = append(conditions, "created_at <= "+arg(*filter.Until))
	}

	q := "SELECT id, type, actor_id, target_id, message, details, created_at FROM audit_events"
	if len(conditions) > 0 {
		q += " WHERE " + strings.Join(conditions, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q += " LIMIT " + arg(limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var eventType string
		var details []byte
		if err := rows.Scan(&e.ID, &eventType, &e.ActorID, &e.TargetID, &e.Message, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		e.Type = EventType(eventType)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decoding audit details: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Cleanup deletes events older than the retention window
func (r *SQLRecorder) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := r.db.ExecContext(ctx, "DELETE FROM audit_events WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up audit events: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted audit events: %w", err)
	}
	return deleted, nil
}
