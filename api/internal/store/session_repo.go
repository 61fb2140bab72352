package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Session struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	Token       string       `db:"token"`
	CreatedAt   time.Time    `db:"created_at"`
	ExpiresAt   time.Time    `db:"expires_at"`
	IsActive    bool         `db:"is_active"`
	LoggedOutAt sql.NullTime `db:"logged_out_at"`
}

type SessionRepo struct{ db *sqlx.DB }

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

func (r *SessionRepo) Create(ctx context.Context, s Session) error {
	const q = `
INSERT INTO sessions (id, user_id, token, created_at, expires_at, is_active)
VALUES (:id, :user_id, :token, :created_at, :expires_at, :is_active)`
	if _, err := r.db.NamedExecContext(ctx, q, s); err != nil {
		return fmt.Errorf("create session for %s: %w", s.UserID, err)
	}
	return nil
}

// FindActive returns the newest active, unexpired session of userID. An empty
// token matches any session of the user.
func (r *SessionRepo) FindActive(ctx context.Context, userID, token string, now time.Time) (Session, error) {
	q := `
SELECT id, user_id, token, created_at, expires_at, is_active, logged_out_at
FROM sessions
WHERE user_id = $1 AND is_active AND expires_at > $2`
	args := []any{userID, now}
	if token != "" {
		q += ` AND token = $3`
		args = append(args, token)
	}
	q += ` ORDER BY created_at DESC LIMIT 1`

	var s Session
	if err := r.db.GetContext(ctx, &s, q, args...); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("find active session for %s: %w", userID, err)
	}
	return s, nil
}

// Deactivate ends every active session of userID and reports how many were ended.
func (r *SessionRepo) Deactivate(ctx context.Context, userID string, at time.Time) (int64, error) {
	const q = `UPDATE sessions SET is_active = false, logged_out_at = $2 WHERE user_id = $1 AND is_active`
	res, err := r.db.ExecContext(ctx, q, userID, at)
	if err != nil {
		return 0, fmt.Errorf("deactivate sessions for %s: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// PurgeOlderThan deletes sessions that expired or were logged out more than
// olderThan ago.
func (r *SessionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `DELETE FROM sessions WHERE expires_at < $1 OR (NOT is_active AND logged_out_at < $1)`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
