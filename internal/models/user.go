package models

import "time"

// User represents an account stored in the users table. RoleName is filled
// from a LEFT JOIN on roles and is nil when the role row is missing.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	RoleID       int64     `db:"role_id" json:"role_id"`
	RoleName     *string   `db:"role_name" json:"role_name,omitempty"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastUpdated  time.Time `db:"last_updated" json:"last_updated"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Role returns the role name or an empty string when unresolved.
func (u User) Role() string {
	if u.RoleName == nil {
		return ""
	}
	return *u.RoleName
}
