package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-admin-panel/internal/models"
)

const sessionKeyPrefix = "user_session:"

var errUndecodableSession = errors.New("undecodable session")

// RedisSessionRepository stores login sessions as JSON values with a Redis TTL.
type RedisSessionRepository struct {
	client  *redis.Client
	timeout time.Duration
	now     func() time.Time
}

// NewRedisSessionRepository constructs the repository.
func NewRedisSessionRepository(client *redis.Client, timeout time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Create stores a session expiring ttl from now.
func (r *RedisSessionRepository) Create(ctx context.Context, userID int64, sessionID string, ttl time.Duration) error {
	session, err := models.NewSession(userID, sessionID, r.now(), ttl)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, sessionKey(sessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// IsLive reports whether the session exists and its stored expiry is in the future.
func (r *RedisSessionRepository) IsLive(ctx context.Context, sessionID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	session, err := r.get(ctx, sessionKey(sessionID))
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}
	return session.LiveAt(r.now()), nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose stored expiry is at or before before.
// Redis evicts most of them by TTL already; this catches clock skew.
// Entries that cannot be decoded are removed too and counted as deleted.
func (r *RedisSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var deleted int64
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		session, err := r.get(ctx, key)
		switch {
		case errors.Is(err, errUndecodableSession):
		case err != nil:
			return deleted, err
		case session == nil || session.ExpiresAt.After(before):
			continue
		}
		n, err := r.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("delete expired session: %w", err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan sessions: %w", err)
	}
	return deleted, nil
}

func (r *RedisSessionRepository) get(ctx context.Context, key string) (*models.Session, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("%w %s: %v", errUndecodableSession, key, err)
	}
	return &session, nil
}
