package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-admin-panel/internal/models"
	"github.com/noah-isme/sma-admin-panel/internal/repository"
	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
)

// Bootstrap administrator identity.
const (
	AdminUsername  = "admin"
	adminFirstName = "System"
	adminLastName  = "Administrator"
	adminEmail     = "admin@example.com"
)

type roleStore interface {
	EnsureDefaults(ctx context.Context, roles []models.Role) error
	FindByName(ctx context.Context, name string) (*models.Role, error)
}

type seedUserStore interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

// SeedConfig configures bootstrap provisioning.
type SeedConfig struct {
	AdminPassword string
	// InsecureDefault marks AdminPassword as the well-known fallback.
	InsecureDefault bool
}

// SeedResult reports what a seeding run changed.
type SeedResult struct {
	AdminCreated bool
}

// SeedService provisions default roles and the bootstrap administrator.
type SeedService struct {
	roles  roleStore
	users  seedUserStore
	hasher passwordHasher
	logger *zap.Logger
	config SeedConfig
}

// NewSeedService constructs a SeedService.
func NewSeedService(roles roleStore, users seedUserStore, hasher passwordHasher, logger *zap.Logger, config SeedConfig) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{roles: roles, users: users, hasher: hasher, logger: logger, config: config}
}

// Seed ensures the default roles and the admin account exist. Running it
// again changes nothing.
func (s *SeedService) Seed(ctx context.Context) (*SeedResult, error) {
	if err := s.roles.EnsureDefaults(ctx, models.DefaultRoles()); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}

	exists, err := s.users.ExistsByUsername(ctx, AdminUsername)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}
	if exists {
		s.logger.Debug("admin user already present")
		return &SeedResult{}, nil
	}

	role, err := s.roles.FindByName(ctx, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "admin role missing after seeding")
		}
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}

	if s.config.InsecureDefault {
		s.logger.Warn("seeding admin with the default password; set ADMIN_PASSWORD and change it after first login")
	}

	hash, err := s.hasher.Hash(ctx, s.config.AdminPassword)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "failed to hash admin password")
	}

	admin := &models.User{
		Username:     AdminUsername,
		PasswordHash: hash,
		FirstName:    adminFirstName,
		LastName:     adminLastName,
		Email:        adminEmail,
		RoleID:       role.ID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Info("admin user created concurrently")
			return &SeedResult{}, nil
		}
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, fmt.Errorf("create admin: %w", err))
	}

	s.logger.Info("admin user created", zap.Int64("user_id", admin.ID))
	return &SeedResult{AdminCreated: true}, nil
}
