package auth

import "github.com/makersite/makersite/pkg/store"

// GetMigrations returns the token schema migrations
func GetMigrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					token_hash VARCHAR(64) NOT NULL,
					token_prefix VARCHAR(16) NOT NULL,
					name VARCHAR(255) NOT NULL,
					last_used_at TIMESTAMP,
					expires_at TIMESTAMP,
					revoked_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX idx_api_tokens_hash ON api_tokens(token_hash);
				CREATE INDEX idx_api_tokens_user ON api_tokens(user_id);
			`,
		},
	}
}
