package models

import "time"

// DepartmentRole is the role a staff member holds within a department.
type DepartmentRole string

const (
	DepartmentLeader   DepartmentRole = "Leader"
	DepartmentLecturer DepartmentRole = "Lecturer"
	DepartmentStudent  DepartmentRole = "Student"
)

// Department groups courses and staff.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentStaff links a user to a department with a department role.
type DepartmentStaff struct {
	DepartmentID string         `db:"department_id" json:"department_id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Role         DepartmentRole `db:"role" json:"role"`
	UserName     string         `db:"user_name" json:"user_name,omitempty"`
	UserEmail    string         `db:"user_email" json:"user_email,omitempty"`
}

// CreateDepartmentRequest is the payload for creating a department.
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// UpdateDepartmentRequest is the payload for renaming a department.
type UpdateDepartmentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// AddStaffRequest links a user to a department with a role.
type AddStaffRequest struct {
	UserID string         `json:"user_id" validate:"required,uuid"`
	Role   DepartmentRole `json:"role" validate:"required,oneof=Leader Lecturer Student"`
}

// DepartmentFilter captures list criteria for departments.
type DepartmentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
