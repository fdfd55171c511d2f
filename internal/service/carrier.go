package service

import (
	"context"
	"time"

	"github.com/noah-isme/sma-admin-panel/internal/models"
)

// SessionCarrier is the request-scoped key/value store that travels with the
// client, usually a signed cookie.
type SessionCarrier interface {
	Get(key string, dest interface{}) (bool, error)
	Set(key string, value interface{}) error
	Remove(key string)
	Purge()
}

// SessionStore persists server-side login sessions.
type SessionStore interface {
	Create(ctx context.Context, userID int64, sessionID string, ttl time.Duration) error
	IsLive(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type passwordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Compare(ctx context.Context, plaintext, encoded string) error
}

type credentialStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}
