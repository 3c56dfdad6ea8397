package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/homework-board/internal/models"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// contextAuthErrKey stores an auth lookup failure that left the principal unresolved.
const contextAuthErrKey = "authUnavailable"

// AccessTokenCookie is read when no Authorization header is sent, so browser
// navigations carry the session too.
const AccessTokenCookie = "access_token"

// TokenValidator resolves an access token into claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := tokenFromRequest(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when present but does not block. When the
// session store cannot be reached the failure is recorded for TeacherGuard.
func OptionalJWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := tokenFromRequest(c)
		if err != nil {
			c.Next()
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, appErrors.ErrAuthUnavailable) {
				c.Set(contextAuthErrKey, err)
			}
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Claims returns the claims attached by JWT or OptionalJWT.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

func authUnavailable(c *gin.Context) error {
	value, exists := c.Get(contextAuthErrKey)
	if !exists {
		return nil
	}
	err, _ := value.(error)
	return err
}

func tokenFromRequest(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
			return cookie, nil
		}
		return "", appErrors.ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
