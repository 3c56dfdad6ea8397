package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/homework-board/internal/models"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
)

type accountRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.TeacherAccount, error)
	UpsertGoogle(ctx context.Context, account *models.TeacherAccount) error
	UpdateLastLogin(ctx context.Context, id string) error
}

type tokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService signs teachers in and validates their access tokens.
type AuthService struct {
	accounts  accountRepository
	denylist  tokenDenylist
	google    IDTokenVerifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance. google may be nil when
// Google sign-in is not configured.
func NewAuthService(accounts accountRepository, denylist tokenDenylist, google IDTokenVerifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{accounts: accounts, denylist: denylist, google: google, validator: validate, logger: logger, config: config}
}

// LoginGoogle exchanges a Google ID token for an access token, recording the
// account on first sign-in.
func (s *AuthService) LoginGoogle(ctx context.Context, req models.GoogleLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid google sign-in payload")
	}
	if s.google == nil {
		return nil, appErrors.Clone(appErrors.ErrAuthUnavailable, "google sign-in is not configured")
	}

	identity, err := s.google.Verify(req.IDToken)
	if err != nil {
		s.logger.Info("google sign-in rejected", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid google id token")
	}
	if !identity.EmailVerified {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "google email is not verified")
	}

	sub := identity.Subject
	account := &models.TeacherAccount{
		Email:     strings.ToLower(identity.Email),
		FullName:  identity.Name,
		GoogleSub: &sub,
	}
	if err := s.accounts.UpsertGoogle(ctx, account); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record account")
	}

	return s.issue(account, models.ProviderGoogle)
}

// Login authenticates a teacher account by email and password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	if account.PasswordHash == nil || *account.PasswordHash == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	return s.issue(account, models.ProviderPassword)
}

// Logout revokes the access token described by claims until it expires.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing session")
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
// When revocation state cannot be read it returns ErrAuthUnavailable so the
// caller can treat the principal as not yet resolved.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrAuthUnavailable, "failed to check session")
		}
		if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session signed out")
		}
	}

	return claims, nil
}

func (s *AuthService) issue(account *models.TeacherAccount, provider string) (*models.LoginResponse, error) {
	token, issuedAt, err := s.generateAccessToken(account, provider)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Principal: models.Principal{
			ID:       account.ID,
			Email:    account.Email,
			Name:     account.FullName,
			Provider: provider,
		},
	}, nil
}

func (s *AuthService) generateAccessToken(account *models.TeacherAccount, provider string) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   account.ID,
		Email:    account.Email,
		FullName: account.FullName,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}
