package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NormalizeEmail trims and lower-cases an address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a new account. Emails are unique after normalization.
func (s *Store) CreateUser(ctx context.Context, userName, email string, role Role) (*User, error) {
	userName = strings.TrimSpace(userName)
	email = NormalizeEmail(email)
	if userName == "" || email == "" {
		return nil, fmt.Errorf("user name and email are required")
	}
	if role == "" {
		role = RoleMember
	}
	u := &User{
		ID:        uuid.NewString(),
		UserName:  userName,
		Email:     email,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, user_name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.UserName, u.Email, string(u.Role), u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `SELECT id, user_name, email, role, created_at FROM users WHERE id = ?`, id)
}

// FindUserByEmail looks a user up by address, ignoring case and surrounding space.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `SELECT id, user_name, email, role, created_at FROM users WHERE email = ?`,
		NormalizeEmail(email))
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.UserName, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns every account ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_name, email, role, created_at FROM users ORDER BY user_name`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.UserName, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
