package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/makersite/makersite/pkg/errs"
)

// MaxSlugAttempts bounds the suffix retry loop before giving up with a
// conflict error.
const MaxSlugAttempts = 10

// Slugify derives a URL-safe slug from a human-readable name
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

// SlugAttempt returns the nth candidate for a base slug: the base itself
// first, then base-2, base-3, ...
func SlugAttempt(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n+1)
}

// InsertWithSlug runs insert with successive slug candidates until one
// succeeds or the attempt budget is exhausted. The insert must hit a
// unique index on the slug column (partial, excluding soft-deleted rows)
// so concurrent creates cannot both win the same slug.
func InsertWithSlug(ctx context.Context, base string, insert func(ctx context.Context, slug string) error) (string, error) {
	for attempt := 0; attempt < MaxSlugAttempts; attempt++ {
		slug := SlugAttempt(base, attempt)
		err := insert(ctx, slug)
		if err == nil {
			return slug, nil
		}
		if !IsUniqueViolation(err) {
			return "", err
		}
	}
	return "", errs.Conflict(fmt.Sprintf("could not find a unique slug for %q", base))
}
