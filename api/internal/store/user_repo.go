package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// User is keyed by email; the email doubles as the session owner id.
type User struct {
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	LastLogin time.Time `db:"last_login"`
}

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Upsert inserts the user or refreshes name, role and last_login. created_at
// is kept from the first insert.
func (r *UserRepo) Upsert(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (email, name, role, created_at, last_login)
VALUES (:email, :name, :role, :created_at, :last_login)
ON CONFLICT (email) DO UPDATE
SET name = excluded.name,
    role = excluded.role,
    last_login = excluded.last_login`
	if _, err := r.db.NamedExecContext(ctx, q, u); err != nil {
		return fmt.Errorf("upsert user %s: %w", u.Email, err)
	}
	return nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT email, name, role, created_at, last_login FROM users WHERE email = $1`
	var u User
	if err := r.db.GetContext(ctx, &u, q, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user %s: %w", email, err)
	}
	return u, nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	const q = `UPDATE users SET last_login = $2 WHERE email = $1`
	res, err := r.db.ExecContext(ctx, q, email, at)
	if err != nil {
		return fmt.Errorf("touch last login %s: %w", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
