package models

import "time"

// UserRole represents the global role assigned to a user account.
type UserRole string

const (
	RoleAdmin   UserRole = "Admin"
	RoleFinance UserRole = "Finance"
	RoleUser    UserRole = "User"
)

// Permission is a single named grant such as "create_courses".
type Permission string

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	Image        string     `db:"image" json:"image,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateUserRequest is the payload for registering a new user.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=100"`
	Name     string   `json:"name" validate:"required,max=100"`
	Password string   `json:"password" validate:"required,min=8,max=100"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=Admin Finance User"`
	Image    string   `json:"image" validate:"omitempty,url"`
}

// UpdateUserRequest is the payload for updating an existing user.
type UpdateUserRequest struct {
	Name   *string   `json:"name" validate:"omitempty,max=100"`
	Image  *string   `json:"image" validate:"omitempty,url"`
	Role   *UserRole `json:"role" validate:"omitempty,oneof=Admin Finance User"`
	Active *bool     `json:"active"`
}

// PermissionRequest grants or revokes a direct permission on a user.
type PermissionRequest struct {
	Permission Permission `json:"permission" validate:"required,max=100"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
