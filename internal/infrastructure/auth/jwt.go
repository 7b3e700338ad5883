// Package auth validates the JWT access tokens minted by the upstream
// identity provider. This service never issues tokens itself.
package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mutasi/backend/internal/infrastructure/config"
)

// RoleSuperadmin sees every outlet and the cost columns
const RoleSuperadmin = "superadmin"

// Common errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrMissingUserID = errors.New("missing user id in claims")
)

// Claims are the identity claims this service relies on. Outlet binding
// scopes what the user can see; role gates the privileged views.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	OutletID   string `json:"outlet_id"`
	OutletName string `json:"outlet_name"`
	Role       string `json:"role"`
}

// IsSuperadmin reports whether the claims carry the superadmin role
func (c *Claims) IsSuperadmin() bool {
	return strings.EqualFold(c.Role, RoleSuperadmin)
}

// DisplayName returns the best available name for audit fields
func (c *Claims) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.Email
}

// JWTService validates bearer tokens
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTService creates a validation-only JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Validate parses and verifies a bearer token and returns its claims
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" && claims.Subject == "" {
		return nil, ErrMissingUserID
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
