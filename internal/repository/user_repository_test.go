package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurnacious/school-manager-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "name", "image", "role", "password_hash", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "a@x.com", "Arthur", "", string(models.RoleAdmin), "salt:hash", true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, image, role, password_hash, active, last_login, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("a@x.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRolePermissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"permission"}).
		AddRow("create_users").
		AddRow("edit_users")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT permission FROM role_permissions WHERE role = $1")).
		WithArgs(models.RoleAdmin).
		WillReturnRows(rows)

	perms, err := repo.RolePermissions(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []models.Permission{"create_users", "edit_users"}, perms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPermissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"permission"}).AddRow("view_payments")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT permission FROM user_permissions WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(rows)

	perms, err := repo.UserPermissions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.Permission{"view_payments"}, perms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "email", "name", "image", "role", "password_hash", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "a@x.com", "A", "", string(models.RoleAdmin), "hash", true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, image, role, password_hash, active, last_login, created_at, updated_at FROM users WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1")).WillReturnRows(countRows)

	users, total, err := repo.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "b@x.com", Name: "B", Role: models.RoleUser, Active: true}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "u1"
	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{UserID: &userID, Action: models.AuditActionLogin, Resource: "auth"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditLogs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	userID := "u1"
	cols := []string{"id", "user_id", "action", "resource", "resource_id", "new_values", "ip_address", "user_agent", "created_at", "user_name"}
	listRows := sqlmock.NewRows(cols).
		AddRow("a1", userID, models.AuditActionLogin, "auth", userID, []byte(`{}`), "127.0.0.1", "curl", now, "Arthur").
		AddRow("a2", nil, models.AuditActionDelete, "course", nil, []byte(`{}`), "", "", now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.user_id, a.action, a.resource, a.resource_id, a.new_values, a.ip_address, a.user_agent, a.created_at, u.name AS user_name FROM audit_logs a LEFT JOIN users u ON u.id = a.user_id WHERE 1=1 ORDER BY a.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs a LEFT JOIN users u ON u.id = a.user_id WHERE 1=1")).WillReturnRows(countRows)

	entries, total, err := repo.ListAuditLogs(context.Background(), models.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, total)
	require.NotNil(t, entries[0].UserName)
	assert.Equal(t, "Arthur", *entries[0].UserName)
	assert.Nil(t, entries[1].UserName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditLogsActionFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	cols := []string{"id", "user_id", "action", "resource", "resource_id", "new_values", "ip_address", "user_agent", "created_at", "user_name"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND a.action = $1 ORDER BY a.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.AuditActionLogin).
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(models.AuditActionLogin).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	entries, total, err := repo.ListAuditLogs(context.Background(), models.AuditLogFilter{Action: models.AuditActionLogin})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
