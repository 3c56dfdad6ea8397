package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/guard"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/response"
)

// ContextPrincipalKey stores the authorized *models.Principal.
const ContextPrincipalKey = "principal"

// TeacherGuard gates the teacher route group. It must run after OptionalJWT.
// apiPrefix is stripped from the request path so API calls and browser
// navigations map onto the same view paths.
func TeacherGuard(policy guard.Policy, apiPrefix string, logger *zap.Logger, opts ...guard.Option) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		machine := guard.NewMachine(policy, opts...)
		if err := authUnavailable(c); err == nil {
			if claims := Claims(c); claims != nil {
				machine.Observe(claims.Principal())
			} else {
				machine.Observe(nil)
			}
		} else {
			logger.Warn("auth state unresolved", zap.Error(err))
		}

		path := viewPath(c.Request.URL.Path, apiPrefix)
		decision := machine.Evaluate(path)
		browser := wantsHTML(c)

		switch decision {
		case guard.Render:
			c.Set(ContextPrincipalKey, machine.Principal())
			c.Next()
		case guard.ShowLoading:
			c.Header("Retry-After", "1")
			response.Error(c, appErrors.ErrAuthUnavailable, map[string]interface{}{"state": guard.StateLoading.String()})
			c.Abort()
		case guard.RedirectLogin:
			target := machine.Target(decision)
			if browser {
				c.Redirect(http.StatusFound, target)
				c.Abort()
				return
			}
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in required"), response.Redirect(target))
			c.Abort()
		case guard.RedirectLanding:
			target := machine.Target(decision)
			if browser {
				c.Redirect(http.StatusFound, target)
				c.Abort()
				return
			}
			response.JSON(c, http.StatusOK, machine.Principal(), response.Redirect(target))
			c.Abort()
		default:
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}

func viewPath(path, apiPrefix string) string {
	prefix := strings.TrimRight(apiPrefix, "/")
	if prefix != "" && strings.HasPrefix(path, prefix+"/") {
		return strings.TrimPrefix(path, prefix)
	}
	return path
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
