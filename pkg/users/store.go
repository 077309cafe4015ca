package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/query"
)

// Store persists user accounts
type Store interface {
	Insert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, clause query.Clause) ([]*User, int64, error)
	Update(ctx context.Context, user *User) error
	SetStatus(ctx context.Context, id int64, status string) error
	SoftDelete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

const userColumns = "id, name, email, password_hash, role, status, created_at, updated_at"

// SQLStore implements Store over database/sql
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a user store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert creates a user row and fills in the generated fields
func (s *SQLStore) Insert(ctx context.Context, user *User) error {
	q := `
		INSERT INTO users (name, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, q,
		user.Name, user.Email, user.PasswordHash, user.Role, user.Status).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id, excluding soft-deleted rows
func (s *SQLStore) GetByID(ctx context.Context, id int64) (*User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND deleted_at IS NULL`, userColumns)
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

// GetByEmail retrieves a user by email, excluding soft-deleted rows
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 AND deleted_at IS NULL`, userColumns)
	return s.scanOne(s.db.QueryRowContext(ctx, q, email))
}

// List retrieves a shaped page of users together with the total count
func (s *SQLStore) List(ctx context.Context, clause query.Clause) ([]*User, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users %s", clause.Where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, clause.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	listQuery := fmt.Sprintf("SELECT %s FROM users %s %s LIMIT %d OFFSET %d",
		userColumns, clause.Where, clause.OrderBy, clause.Limit, clause.Offset)
	rows, err := s.db.QueryContext(ctx, listQuery, clause.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
			&user.Role, &user.Status, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, total, nil
}

// Update persists mutable account fields
func (s *SQLStore) Update(ctx context.Context, user *User) error {
	q := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, updated_at = NOW()
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, q,
		user.Name, user.Email, user.PasswordHash, user.ID).Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows {
		return errs.NotFound("user")
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SetStatus flips the account status
func (s *SQLStore) SetStatus(ctx context.Context, id int64, status string) error {
	q := `UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return fmt.Errorf("failed to set user status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("user")
	}
	return nil
}

// SoftDelete marks the account deleted
func (s *SQLStore) SoftDelete(ctx context.Context, id int64) error {
	q := `UPDATE users SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("user")
	}
	return nil
}

// CountByStatus returns account counts per status for the dashboard
func (s *SQLStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	q := `SELECT status, COUNT(*) FROM users WHERE deleted_at IS NULL GROUP BY status`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to count users by status: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *SQLStore) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

var _ Store = (*SQLStore)(nil)
