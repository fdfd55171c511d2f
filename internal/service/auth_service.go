package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admin-panel/internal/models"
	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
	"github.com/noah-isme/sma-admin-panel/pkg/password"
)

// DefaultSessionTTL is how long a login session stays live.
const DefaultSessionTTL = 7 * 24 * time.Hour

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	SessionTTL time.Duration
	// RefreshIdentity re-reads the user on every Verify so that disabled
	// accounts and role changes take effect before the session expires.
	RefreshIdentity bool
}

// AuthService handles login, session verification and logout.
type AuthService struct {
	users    credentialStore
	sessions SessionStore
	hasher   passwordHasher
	metrics  *MetricsService
	logger   *zap.Logger
	config   AuthConfig

	dummyMu   sync.Mutex
	dummyHash string
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users credentialStore, sessions SessionStore, hasher passwordHasher, metrics *MetricsService, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	return &AuthService{users: users, sessions: sessions, hasher: hasher, metrics: metrics, logger: logger, config: config}
}

// Login checks the credentials and, on success, issues a session and stores
// the identity snapshot in carrier. Rejections come back as a non-nil result
// with a nil error; use AuthResult.Err to surface them. Storage failures
// return ErrStorageUnavailable.
func (s *AuthService) Login(ctx context.Context, carrier SessionCarrier, username, plaintext string) (*models.AuthResult, error) {
	if username == "" || plaintext == "" {
		return s.reject(models.AuthInvalidCredential, username), nil
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.equalizeTiming(ctx, plaintext)
			return s.reject(models.AuthNoSuchIdentity, username), nil
		}
		return nil, s.storageFailure("lookup user", err)
	}

	if !user.IsActive {
		return s.reject(models.AuthInactiveIdentity, username), nil
	}

	if err := s.hasher.Compare(ctx, plaintext, user.PasswordHash); err != nil {
		switch {
		case errors.Is(err, password.ErrMismatch):
		case errors.Is(err, password.ErrMalformedHash):
			s.logger.Error("stored password hash could not be parsed", zap.Int64("user_id", user.ID), zap.Error(err))
		default:
			return nil, s.storageFailure("verify password", err)
		}
		return s.reject(models.AuthInvalidCredential, username), nil
	}

	// Nothing has been written yet; a cancelled request must not leave a session behind.
	if err := ctx.Err(); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}

	sessionID := uuid.NewString()
	if err := s.sessions.Create(ctx, user.ID, sessionID, s.config.SessionTTL); err != nil {
		return nil, s.storageFailure("create session", err)
	}

	snapshot := models.NewIdentitySnapshot(*user, sessionID)
	if err := carrier.Set(models.SessionKey, snapshot); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if delErr := s.sessions.Delete(cleanupCtx, sessionID); delErr != nil {
			s.logger.Error("failed to discard orphaned session", zap.Int64("user_id", user.ID), zap.Error(delErr))
		}
		s.logger.Error("failed to write session carrier", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err)
	}

	s.metrics.ObserveLogin(models.AuthAuthenticated.String())
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return &models.AuthResult{Outcome: models.AuthAuthenticated, Identity: &snapshot}, nil
}

// Verify returns the identity in carrier when its session is still live, or
// nil when there is none. A stale carrier entry is removed.
func (s *AuthService) Verify(ctx context.Context, carrier SessionCarrier) (*models.IdentitySnapshot, error) {
	var snapshot models.IdentitySnapshot
	found, err := carrier.Get(models.SessionKey, &snapshot)
	if err != nil {
		s.logger.Warn("discarding undecodable session carrier", zap.Error(err))
		carrier.Remove(models.SessionKey)
		s.metrics.ObserveSessionCheck("invalid")
		return nil, nil
	}
	if !found || snapshot.SessionID == "" {
		s.metrics.ObserveSessionCheck("missing")
		return nil, nil
	}

	live, err := s.sessions.IsLive(ctx, snapshot.SessionID)
	if err != nil {
		return nil, s.storageFailure("check session", err)
	}
	if !live {
		carrier.Remove(models.SessionKey)
		s.metrics.ObserveSessionCheck("expired")
		return nil, nil
	}

	if s.config.RefreshIdentity {
		return s.refresh(ctx, carrier, snapshot)
	}

	s.metrics.ObserveSessionCheck("live")
	return &snapshot, nil
}

func (s *AuthService) refresh(ctx context.Context, carrier SessionCarrier, snapshot models.IdentitySnapshot) (*models.IdentitySnapshot, error) {
	user, err := s.users.FindByID(ctx, snapshot.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, s.storageFailure("refresh identity", err)
	}
	if user == nil || !user.IsActive {
		if err := s.sessions.Delete(ctx, snapshot.SessionID); err != nil {
			return nil, s.storageFailure("revoke session", err)
		}
		carrier.Remove(models.SessionKey)
		s.metrics.ObserveSessionCheck("revoked")
		s.logger.Info("session revoked for missing or inactive user", zap.Int64("user_id", snapshot.UserID))
		return nil, nil
	}

	refreshed := models.NewIdentitySnapshot(*user, snapshot.SessionID)
	if !sameIdentity(refreshed, snapshot) {
		if err := carrier.Set(models.SessionKey, refreshed); err != nil {
			s.logger.Warn("failed to rewrite refreshed identity", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}
	s.metrics.ObserveSessionCheck("live")
	return &refreshed, nil
}

// Logout deletes the session named by carrier and always purges carrier, even
// when the delete fails. The storage error is still returned.
func (s *AuthService) Logout(ctx context.Context, carrier SessionCarrier) error {
	var result error

	var snapshot models.IdentitySnapshot
	found, err := carrier.Get(models.SessionKey, &snapshot)
	if err == nil && found && snapshot.SessionID != "" {
		if err := s.sessions.Delete(ctx, snapshot.SessionID); err != nil {
			result = s.storageFailure("delete session", err)
		} else {
			s.logger.Info("user logged out", zap.Int64("user_id", snapshot.UserID))
		}
	}

	carrier.Purge()
	return result
}

func (s *AuthService) reject(outcome models.AuthOutcome, username string) *models.AuthResult {
	s.metrics.ObserveLogin(outcome.String())
	s.logger.Warn("login rejected", zap.String("username", username), zap.String("reason", outcome.String()))
	return &models.AuthResult{Outcome: outcome}
}

func (s *AuthService) storageFailure(op string, err error) error {
	s.logger.Error("storage call failed", zap.String("op", op), zap.Error(err))
	return appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
}

// equalizeTiming runs a comparison against a throwaway hash so unknown
// usernames cost about as much as wrong passwords.
func (s *AuthService) equalizeTiming(ctx context.Context, plaintext string) {
	hash := s.timingHash(ctx)
	if hash == "" {
		return
	}
	_ = s.hasher.Compare(ctx, plaintext, hash)
}

// timingHash builds the throwaway hash on first use. The build ignores the
// caller's cancellation and a failed build is retried by the next caller.
func (s *AuthService) timingHash(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}
	hash, err := s.hasher.Hash(context.WithoutCancel(ctx), uuid.NewString())
	if err != nil {
		s.logger.Warn("failed to prepare timing hash", zap.Error(err))
		return ""
	}
	s.dummyHash = hash
	return hash
}

func sameIdentity(a, b models.IdentitySnapshot) bool {
	return a.UserID == b.UserID &&
		a.Username == b.Username &&
		a.SessionID == b.SessionID &&
		a.RoleID == b.RoleID &&
		a.Role() == b.Role() &&
		(a.RoleName == nil) == (b.RoleName == nil) &&
		a.FirstName == b.FirstName &&
		a.LastName == b.LastName
}
