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

// RoleRepository manages the roles table.
type RoleRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRoleRepository constructs the repository.
func NewRoleRepository(db *sqlx.DB, timeout time.Duration) *RoleRepository {
	return &RoleRepository{db: db, timeout: timeout}
}

// EnsureDefaults inserts roles that do not exist yet, in one transaction.
func (r *RoleRepository) EnsureDefaults(ctx context.Context, roles []models.Role) (err error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO roles (name, description) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
	for _, role := range roles {
		if _, err = tx.ExecContext(ctx, query, role.Name, role.Description); err != nil {
			return fmt.Errorf("insert role %s: %w", role.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit role seed: %w", err)
	}
	return nil
}

// FindByName returns a role by name. sql.ErrNoRows is returned when absent.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var role models.Role
	if err := r.db.GetContext(ctx, &role, `SELECT id, name, description FROM roles WHERE name = $1`, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return &role, nil
}

// List returns all roles ordered by id.
func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	roles := []models.Role{}
	if err := r.db.SelectContext(ctx, &roles, `SELECT id, name, description FROM roles ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
