// Package auth gates every mutating or privileged-read operation
// behind a single question: is this caller an authenticated
// administrator. The core never evaluates credentials anywhere else.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/config"
	pkgauth "github.com/rosterhq/oncall-api/pkg/auth"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
	"github.com/rosterhq/oncall-api/pkg/security"
)

// Claims re-exports the token claims so handlers and middleware do not
// import the token package directly.
type Claims = pkgauth.Claims

type Service struct {
	admin  config.AdminConfig
	tokens pkgauth.JWTService
	hasher security.PasswordHasher
	clock  clock.Clock
}

func NewService(cfg config.JWTConfig, admin config.AdminConfig, clk clock.Clock) *Service {
	return &Service{
		admin:  admin,
		tokens: pkgauth.NewJWTService(cfg.Secret, time.Duration(cfg.ExpiryHours)*time.Hour),
		hasher: security.NewBcryptHasher(security.DefaultBcryptCost),
		clock:  clk,
	}
}

// Login checks the administrator credential and mints a bearer token.
func (s *Service) Login(_ context.Context, email, password string) (string, error) {
	if email != s.admin.Email {
		return "", apperrors.Unauthorized(fmt.Errorf("unknown administrator"))
	}
	if err := s.hasher.Compare(s.admin.PasswordHash, password); err != nil {
		return "", apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	token, err := s.tokens.Generate(email, s.clock.Now())
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}

// ValidateToken parses a bearer token and returns its claims.
func (s *Service) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}
