package products

import "github.com/makersite/makersite/pkg/store"

// GetMigrations returns all product catalog migrations
func GetMigrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "Create products table",
			SQL: `
				CREATE TABLE IF NOT EXISTS products (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					site_id BIGINT REFERENCES sites(id),
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					price BIGINT NOT NULL DEFAULT 0,
					price_type INT NOT NULL DEFAULT 1,
					stock INT,
					sku VARCHAR(100) NOT NULL DEFAULT '',
					featured_img JSONB,
					featured BOOLEAN NOT NULL DEFAULT FALSE,
					published BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE UNIQUE INDEX idx_products_slug ON products(slug) WHERE deleted_at IS NULL;
				CREATE INDEX idx_products_user_id ON products(user_id);
				CREATE INDEX idx_products_site_id ON products(site_id);
				CREATE INDEX idx_products_published ON products(published);
				CREATE INDEX idx_products_featured ON products(featured);
			`,
		},
	}
}
