package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admin-panel/internal/models"
)

// SessionRepository stores login sessions in user_sessions.
type SessionRepository struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB, timeout time.Duration) *SessionRepository {
	return &SessionRepository{db: db, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a session expiring ttl from now.
func (r *SessionRepository) Create(ctx context.Context, userID int64, sessionID string, ttl time.Duration) error {
	session, err := models.NewSession(userID, sessionID, r.now(), ttl)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `INSERT INTO user_sessions (user_id, session_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, session.UserID, session.SessionID, session.CreatedAt, session.ExpiresAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// IsLive reports whether the session row exists and has not expired.
func (r *SessionRepository) IsLive(ctx context.Context, sessionID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var live bool
	const query = `SELECT EXISTS(SELECT 1 FROM user_sessions WHERE session_id = $1 AND expires_at > $2)`
	if err := r.db.GetContext(ctx, &live, query, sessionID, r.now()); err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return live, nil
}

// Delete removes the session row. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired at or before before.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count expired sessions: %w", err)
	}
	return affected, nil
}
