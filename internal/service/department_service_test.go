package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurnacious/school-manager-api/internal/models"
	appErrors "github.com/arthurnacious/school-manager-api/pkg/errors"
)

type mockDeptRepo struct {
	byID    map[string]*models.Department
	slugs   map[string]string
	staff   map[string][]models.DepartmentStaff
	created []*models.Department
	updated []*models.Department
	deleted []string
}

func newMockDeptRepo() *mockDeptRepo {
	return &mockDeptRepo{
		byID:  make(map[string]*models.Department),
		slugs: make(map[string]string),
		staff: make(map[string][]models.DepartmentStaff),
	}
}

func (m *mockDeptRepo) add(d *models.Department) {
	m.byID[d.ID] = d
	m.slugs[d.Slug] = d.ID
}

func (m *mockDeptRepo) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error) {
	var departments []models.Department
	for _, d := range m.byID {
		departments = append(departments, *d)
	}
	return departments, len(departments), nil
}

func (m *mockDeptRepo) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.byID[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDeptRepo) ExistsBySlug(ctx context.Context, slug, excludeID string) (bool, error) {
	id, ok := m.slugs[slug]
	return ok && id != excludeID, nil
}

func (m *mockDeptRepo) Create(ctx context.Context, dept *models.Department) error {
	dept.ID = "generated"
	m.created = append(m.created, dept)
	m.add(dept)
	return nil
}

func (m *mockDeptRepo) Update(ctx context.Context, dept *models.Department) error {
	m.updated = append(m.updated, dept)
	return nil
}

func (m *mockDeptRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDeptRepo) ListStaff(ctx context.Context, departmentID string) ([]models.DepartmentStaff, error) {
	return m.staff[departmentID], nil
}

func (m *mockDeptRepo) AddStaff(ctx context.Context, staff *models.DepartmentStaff) error {
	m.staff[staff.DepartmentID] = append(m.staff[staff.DepartmentID], *staff)
	return nil
}

func (m *mockDeptRepo) RemoveStaff(ctx context.Context, departmentID, userID string) error {
	kept := m.staff[departmentID][:0]
	for _, s := range m.staff[departmentID] {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	m.staff[departmentID] = kept
	return nil
}

func TestCreateDepartmentDerivesSlug(t *testing.T) {
	repo := newMockDeptRepo()
	svc := NewDepartmentService(repo, nil, nil)

	dept, err := svc.Create(context.Background(), models.CreateDepartmentRequest{Name: "Computer Science!"})
	require.NoError(t, err)

	assert.Equal(t, "Computer Science!", dept.Name)
	assert.Equal(t, "computer-science", dept.Slug)
}

func TestCreateDepartmentSlugConflict(t *testing.T) {
	repo := newMockDeptRepo()
	repo.add(&models.Department{ID: "d1", Name: "Music", Slug: "music"})
	svc := NewDepartmentService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateDepartmentRequest{Name: "Music"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestUpdateDepartmentKeepsOwnSlug(t *testing.T) {
	repo := newMockDeptRepo()
	repo.add(&models.Department{ID: "d1", Name: "Music", Slug: "music"})
	svc := NewDepartmentService(repo, nil, nil)

	// Renaming to a slug the department already owns is not a conflict.
	dept, err := svc.Update(context.Background(), "d1", models.UpdateDepartmentRequest{Name: "MUSIC"})
	require.NoError(t, err)
	assert.Equal(t, "music", dept.Slug)
}

func TestAddStaffUnknownDepartment(t *testing.T) {
	repo := newMockDeptRepo()
	svc := NewDepartmentService(repo, nil, nil)

	err := svc.AddStaff(context.Background(), "ghost", models.AddStaffRequest{
		UserID: "8aee8259-6e27-4241-9d55-99d0b4e83870",
		Role:   models.DepartmentLecturer,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Computer Science": "computer-science",
		"  Foo   Bar  ":    "foo-bar",
		"It's Maths!":      "its-maths",
		"Already-Slugged":  "already-slugged",
		"Trailing Space ":  "trailing-space",
	}
	for input, want := range cases {
		assert.Equal(t, want, slugify(input), "slugify(%q)", input)
	}
}
