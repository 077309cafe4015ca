// Package products manages the product catalog: owner-facing CRUD and
// the public storefront listings.
package products

import (
	"strings"
	"time"

	"github.com/makersite/makersite/pkg/storage"
)

// Pricing models
const (
	PriceTypeFixed      = 1
	PriceTypePayWhatYou = 2
	PriceTypeFree       = 3
)

// Product represents a sellable item
type Product struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	SiteID      *int64           `json:"site_id,omitempty"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	// Price is in the smallest currency unit
	Price       int64            `json:"price"`
	PriceType   int              `json:"price_type"`
	Stock       *int             `json:"stock,omitempty"`
	SKU         string           `json:"sku,omitempty"`
	FeaturedImg *storage.FileRef `json:"featured_img,omitempty"`
	Featured    bool             `json:"featured"`
	Published   bool             `json:"published"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"-"`
}

// Input carries the fields accepted when creating or updating a product
type Input struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       int64            `json:"price"`
	PriceType   int              `json:"price_type"`
	Stock       *int             `json:"stock"`
	SKU         string           `json:"sku"`
	SiteID      *int64           `json:"site_id"`
	FeaturedImg *storage.FileRef `json:"featured_img"`
	Featured    bool             `json:"featured"`
	Published   bool             `json:"published"`
	// UserID lets an admin create a product on behalf of another account
	UserID int64 `json:"user_id"`
}

// Validate checks the input and returns field-level messages
func (in Input) Validate() map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "name is required"
	}
	switch in.PriceType {
	case PriceTypeFixed:
		if in.Price <= 0 {
			details["price"] = "fixed-price products need a positive price"
		}
	case PriceTypePayWhatYou:
		if in.Price < 0 {
			details["price"] = "minimum price cannot be negative"
		}
	case PriceTypeFree:
		if in.Price != 0 {
			details["price"] = "free products cannot have a price"
		}
	default:
		details["price_type"] = "price_type must be 1 (fixed), 2 (pay what you want) or 3 (free)"
	}
	if in.Stock != nil && *in.Stock < 0 {
		details["stock"] = "stock cannot be negative"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
