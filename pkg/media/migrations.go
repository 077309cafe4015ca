package media

import "github.com/makersite/makersite/pkg/store"

// GetMigrations returns all media library migrations
func GetMigrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "Create media table",
			SQL: `
				CREATE TABLE IF NOT EXISTS media (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					filename VARCHAR(255) NOT NULL,
					original_name VARCHAR(255) NOT NULL,
					path VARCHAR(1024) NOT NULL,
					url VARCHAR(1024) NOT NULL,
					size BIGINT NOT NULL DEFAULT 0,
					mime_type VARCHAR(100) NOT NULL DEFAULT '',
					tags JSONB NOT NULL DEFAULT '[]',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE INDEX idx_media_user_id ON media(user_id);
				CREATE INDEX idx_media_mime_type ON media(mime_type);
			`,
		},
	}
}
