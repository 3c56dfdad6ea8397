package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auth providers recorded on issued tokens.
const (
	ProviderGoogle   = "google"
	ProviderPassword = "password"
)

// LoginRequest holds credentials for password sign-in.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// GoogleLoginRequest carries the ID token returned by the Google sign-in popup.
type GoogleLoginRequest struct {
	IDToken   string `json:"id_token" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and the signed-in principal.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Principal   Principal `json:"principal"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Principal is the authenticated identity behind a request.
type Principal struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the principal they describe.
func (c *JWTClaims) Principal() *Principal {
	if c == nil {
		return nil
	}
	return &Principal{ID: c.UserID, Email: c.Email, Name: c.FullName, Provider: c.Provider}
}
