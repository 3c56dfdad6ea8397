package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/homework-board/internal/guard"
	"github.com/noah-isme/homework-board/internal/middleware"
	"github.com/noah-isme/homework-board/internal/models"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	LoginGoogle(ctx context.Context, req models.GoogleLoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, claims *models.JWTClaims) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service      authService
	secureCookie bool
}

// NewAuthHandler creates a new handler. secureCookie marks the session cookie
// HTTPS-only.
func NewAuthHandler(svc authService, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: svc, secureCookie: secureCookie}
}

// Google godoc
// @Summary Sign in with Google
// @Description Exchange a Google ID token for an access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.GoogleLoginRequest true "Google ID token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /auth/google [post]
func (h *AuthHandler) Google(c *gin.Context) {
	var req models.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid google sign-in payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.LoginGoogle(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSession(c, res)
	response.JSON(c, http.StatusOK, res, response.Redirect(guard.DefaultLandingPath))
}

// Login godoc
// @Summary Authenticate teacher
// @Description Authenticate a teacher account by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSession(c, res)
	response.JSON(c, http.StatusOK, res, response.Redirect(guard.DefaultLandingPath))
}

// Logout godoc
// @Summary Sign out
// @Description Revoke the current access token
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims); err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	response.NoContent(c)
}

// Me godoc
// @Summary Get current principal
// @Description Returns the signed-in teacher
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, claims.Principal())
}

func (h *AuthHandler) setSession(c *gin.Context, res *models.LoginResponse) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, res.AccessToken, int(res.ExpiresIn), "/", "", h.secureCookie, true)
}
