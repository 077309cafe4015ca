package sites

import "github.com/makersite/makersite/pkg/store"

// GetMigrations returns all site tree migrations
func GetMigrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "Create sites table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sites (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					name VARCHAR(255) NOT NULL,
					address VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					settings JSONB,
					seo JSONB,
					logo JSONB,
					favicon JSONB,
					published BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE UNIQUE INDEX idx_sites_address ON sites(address) WHERE deleted_at IS NULL;
				CREATE UNIQUE INDEX idx_sites_slug ON sites(slug) WHERE deleted_at IS NULL;
				CREATE INDEX idx_sites_user_id ON sites(user_id);
				CREATE INDEX idx_sites_published ON sites(published);
			`,
		},
		{
			Version:     2,
			Description: "Create pages table",
			SQL: `
				CREATE TABLE IF NOT EXISTS pages (
					id BIGSERIAL PRIMARY KEY,
					site_id BIGINT NOT NULL REFERENCES sites(id),
					title VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					position INT NOT NULL DEFAULT 0,
					published BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE UNIQUE INDEX idx_pages_site_slug ON pages(site_id, slug) WHERE deleted_at IS NULL;
				CREATE INDEX idx_pages_site_id ON pages(site_id);
			`,
		},
		{
			Version:     3,
			Description: "Create sections table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sections (
					id BIGSERIAL PRIMARY KEY,
					page_id BIGINT NOT NULL REFERENCES pages(id),
					type VARCHAR(50) NOT NULL,
					content JSONB,
					position INT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_sections_page_id ON sections(page_id);
			`,
		},
	}
}
