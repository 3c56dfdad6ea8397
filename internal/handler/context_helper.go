package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/homework-board/internal/middleware"
	"github.com/noah-isme/homework-board/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// principalFromContext returns the principal authorized by TeacherGuard.
func principalFromContext(c *gin.Context) *models.Principal {
	value, exists := c.Get(middleware.ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
