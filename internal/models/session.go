package models

import (
	"errors"
	"time"
)

// SessionKey is the carrier key holding the IdentitySnapshot.
const SessionKey = "user_session"

// ErrInvalidSession is returned when a session row would violate its invariants.
var ErrInvalidSession = errors.New("invalid session")

// Session is a server-side login session. It is live while the row exists
// and the current time is before ExpiresAt.
type Session struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// NewSession builds a session created at now and expiring after ttl.
func NewSession(userID int64, sessionID string, now time.Time, ttl time.Duration) (*Session, error) {
	if sessionID == "" {
		return nil, errors.Join(ErrInvalidSession, errors.New("session id is empty"))
	}
	if ttl <= 0 {
		return nil, errors.Join(ErrInvalidSession, errors.New("ttl must be positive"))
	}
	return &Session{
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// LiveAt reports whether the session has not expired at t.
func (s Session) LiveAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}

// IdentitySnapshot is the copy of identity data kept in the carrier after
// login. It is a hint only; the session store decides whether it is live.
type IdentitySnapshot struct {
	UserID    int64   `json:"user_id"`
	Username  string  `json:"username"`
	SessionID string  `json:"session_id"`
	RoleID    int64   `json:"role_id"`
	RoleName  *string `json:"role_name"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
}

// NewIdentitySnapshot copies the identity fields of user for sessionID.
func NewIdentitySnapshot(user User, sessionID string) IdentitySnapshot {
	return IdentitySnapshot{
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: sessionID,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

// Role returns the role name or an empty string when unresolved.
func (s IdentitySnapshot) Role() string {
	if s.RoleName == nil {
		return ""
	}
	return *s.RoleName
}
