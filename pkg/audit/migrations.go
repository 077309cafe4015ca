package audit

import "github.com/makersite/makersite/pkg/store"

// GetMigrations returns the audit schema migrations
func GetMigrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id BIGSERIAL PRIMARY KEY,
					type VARCHAR(64) NOT NULL,
					actor_id BIGINT NOT NULL,
					target_id BIGINT,
					message TEXT NOT NULL DEFAULT '',
					details JSONB,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_audit_events_type ON audit_events(type);
				CREATE INDEX idx_audit_events_actor ON audit_events(actor_id);
				CREATE INDEX idx_audit_events_created_at ON audit_events(created_at);
			`,
		},
	}
}
