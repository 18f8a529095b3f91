package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arthurnacious/school-manager-api/internal/models"
)

// DepartmentRepository provides database access for departments and their
// staff membership.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository creates a new instance of DepartmentRepository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns departments based on filters with total count.
func (r *DepartmentRepository) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error) {
	baseQuery := `FROM departments WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	if sortBy != "name" && sortBy != "created_at" && sortBy != "updated_at" {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, name, slug, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}

	return departments, total, nil
}

// FindByID returns a department by identifier.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT id, name, slug, created_at, updated_at FROM departments WHERE id = $1 LIMIT 1`
	var dept models.Department
	if err := r.db.GetContext(ctx, &dept, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &dept, nil
}

// ExistsBySlug reports whether a department already uses the slug.
func (r *DepartmentRepository) ExistsBySlug(ctx context.Context, slug, excludeID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM departments WHERE slug = $1 AND id <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, slug, excludeID); err != nil {
		return false, fmt.Errorf("department slug exists: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new department.
func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	dept.CreatedAt = now
	dept.UpdatedAt = now
	const query = `INSERT INTO departments (id, name, slug, created_at, updated_at) VALUES (:id, :name, :slug, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update updates mutable fields of a department.
func (r *DepartmentRepository) Update(ctx context.Context, dept *models.Department) error {
	dept.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, slug = :slug, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// Delete removes a department.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM departments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}

// ListStaff returns the staff roster for a department.
func (r *DepartmentRepository) ListStaff(ctx context.Context, departmentID string) ([]models.DepartmentStaff, error) {
	const query = `SELECT ds.department_id, ds.user_id, ds.role, u.name AS user_name, u.email AS user_email
		FROM department_staff ds
		JOIN users u ON u.id = ds.user_id
		WHERE ds.department_id = $1
		ORDER BY u.name ASC`
	var staff []models.DepartmentStaff
	if err := r.db.SelectContext(ctx, &staff, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department staff: %w", err)
	}
	return staff, nil
}

// AddStaff links a user to a department, updating the role if already linked.
func (r *DepartmentRepository) AddStaff(ctx context.Context, staff *models.DepartmentStaff) error {
	const query = `INSERT INTO department_staff (department_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (department_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	if _, err := r.db.ExecContext(ctx, query, staff.DepartmentID, staff.UserID, staff.Role); err != nil {
		return fmt.Errorf("add department staff: %w", err)
	}
	return nil
}

// RemoveStaff unlinks a user from a department.
func (r *DepartmentRepository) RemoveStaff(ctx context.Context, departmentID, userID string) error {
	const query = `DELETE FROM department_staff WHERE department_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, departmentID, userID); err != nil {
		return fmt.Errorf("remove department staff: %w", err)
	}
	return nil
}
