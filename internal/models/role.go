package models

// Well-known role names.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// Role represents a row in the roles table.
type Role struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

// DefaultRoles are provisioned on every bootstrap.
func DefaultRoles() []Role {
	admin := "Full system access"
	teacher := "Can view students and enter grades"
	return []Role{
		{Name: RoleAdmin, Description: &admin},
		{Name: RoleTeacher, Description: &teacher},
	}
}
