package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/makersite/makersite/pkg/errs"
)

// Store persists API tokens
type Store interface {
	Insert(ctx context.Context, token *APIToken) error
	GetByHash(ctx context.Context, hash string) (*APIToken, error)
	GetByID(ctx context.Context, id int64) (*APIToken, error)
	ListByUser(ctx context.Context, userID int64) ([]*APIToken, error)
	TouchLastUsed(ctx context.Context, id int64, at time.Time) error
	Revoke(ctx context.Context, id int64, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

const tokenColumns = `id, user_id, token_hash, token_prefix, name, last_used_at, expires_at, revoked_at, created_at`

// SQLStore implements Store over database/sql
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a token store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert saves a new token record and fills in its id
func (s *SQLStore) Insert(ctx context.Context, token *APIToken) error {
	q := `INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := s.db.QueryRowContext(ctx, q,
		token.UserID, token.TokenHash, token.TokenPrefix, token.Name, token.ExpiresAt, token.CreatedAt,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("inserting api token: %w", err)
	}
	return nil
}

// GetByHash looks up a token by its stored hash
func (s *SQLStore) GetByHash(ctx context.Context, hash string) (*APIToken, error) {
	q := `SELECT ` + tokenColumns + ` FROM api_tokens WHERE token_hash = $1`
	return s.scanToken(s.db.QueryRowContext(ctx, q, hash))
}

// GetByID looks up a token by id
func (s *SQLStore) GetByID(ctx context.Context, id int64) (*APIToken, error) {
	q := `SELECT ` + tokenColumns + ` FROM api_tokens WHERE id = $1`
	return s.scanToken(s.db.QueryRowContext(ctx, q, id))
}

// ListByUser returns all of a user's tokens, newest first, including
// revoked ones so the owner can see the full history.
func (s *SQLStore) ListByUser(ctx context.Context, userID int64) ([]*APIToken, error) {
	q := `SELECT ` + tokenColumns + ` FROM api_tokens WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("listing api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*APIToken
	for rows.Next() {
		var t APIToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.TokenPrefix, &t.Name,
			&t.LastUsedAt, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning api token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

// TouchLastUsed records when the token last authenticated a request
func (s *SQLStore) TouchLastUsed(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("updating token last_used_at: %w", err)
	}
	return nil
}

// Revoke marks a token revoked. Revocation is permanent.
func (s *SQLStore) Revoke(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE api_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("revoking api token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoking api token: %w", err)
	}
	if affected == 0 {
		return errs.NotFound("token not found")
	}
	return nil
}

// DeleteExpired removes tokens whose expiry passed before the cutoff
func (s *SQLStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	return deleted, nil
}

func (s *SQLStore) scanToken(row *sql.Row) (*APIToken, error) {
	var t APIToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.TokenPrefix, &t.Name,
		&t.LastUsedAt, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning api token: %w", err)
	}
	return &t, nil
}
