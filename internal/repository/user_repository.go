package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admin-panel/internal/models"
)

const userSelect = `SELECT u.id, u.username, u.password_hash, u.first_name, u.last_name, u.email, u.role_id, r.name AS role_name, u.is_active, u.created_at, u.last_updated FROM users u LEFT JOIN roles r ON u.role_id = r.id`

// UserRepository provides database access for user accounts.
type UserRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

// FindByUsername returns the user with exactly this username. Matching is
// case-sensitive. sql.ErrNoRows is returned unwrapped when absent.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var user models.User
	if err := r.db.GetContext(ctx, &user, userSelect+` WHERE u.username = $1 LIMIT 1`, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var user models.User
	if err := r.db.GetContext(ctx, &user, userSelect+` WHERE u.id = $1 LIMIT 1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ExistsByUsername reports whether a user with username exists.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// ListAll returns every user ordered by last name then first name.
func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, userSelect+` ORDER BY u.last_name, u.first_name`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create inserts user and fills its generated id and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `INSERT INTO users (username, password_hash, first_name, last_name, email, role_id, is_active) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, last_updated`
	row := r.db.QueryRowxContext(ctx, query, user.Username, user.PasswordHash, user.FirstName, user.LastName, user.Email, user.RoleID, user.IsActive)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.LastUpdated); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
