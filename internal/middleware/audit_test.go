package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurnacious/school-manager-api/internal/models"
)

type auditRecorderStub struct {
	logs []*models.AuditLog
}

func (s *auditRecorderStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func newAuditRouter(rec *auditRecorderStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.AccessClaims{UserID: "u1"})
	})
	r.Use(Audit(rec, "course"))
	r.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/courses", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.PUT("/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.DELETE("/courses/:id", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	return r
}

func do(r *gin.Engine, method, path string) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
}

func TestAuditRecordsMutations(t *testing.T) {
	rec := &auditRecorderStub{}
	r := newAuditRouter(rec)

	do(r, http.MethodPost, "/courses")
	do(r, http.MethodPut, "/courses/c1")

	require.Len(t, rec.logs, 2)

	created := rec.logs[0]
	assert.Equal(t, models.AuditActionCreate, created.Action)
	assert.Equal(t, "course", created.Resource)
	require.NotNil(t, created.UserID)
	assert.Equal(t, "u1", *created.UserID)
	assert.Nil(t, created.ResourceID)

	updated := rec.logs[1]
	assert.Equal(t, models.AuditActionUpdate, updated.Action)
	require.NotNil(t, updated.ResourceID)
	assert.Equal(t, "c1", *updated.ResourceID)
}

func TestAuditSkipsReadsAndFailures(t *testing.T) {
	rec := &auditRecorderStub{}
	r := newAuditRouter(rec)

	do(r, http.MethodGet, "/courses/c1")
	do(r, http.MethodDelete, "/courses/c1")

	assert.Empty(t, rec.logs)
}
