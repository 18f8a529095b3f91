package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/arthurnacious/school-manager-api/internal/middleware"
	"github.com/arthurnacious/school-manager-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.AccessClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.AccessClaims)
	if !ok {
		return nil
	}
	return claims
}
