// Package auth verifies bearer tokens for the HTTP surface. Tokens are
// HMAC-signed JWTs issued by the deployment that fronts this service.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"inkwell/internal/domain"
)

// TokenVerifier validates a bearer token and returns the user ID it
// was issued for.
type TokenVerifier interface {
	VerifyToken(tokenString string) (string, error)
}

// HMACVerifier verifies HS256-signed tokens against a shared secret.
type HMACVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewHMACVerifier creates a verifier for the given shared secret.
func NewHMACVerifier(secret string, logger *slog.Logger) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	return &HMACVerifier{secret: []byte(secret), logger: logger}, nil
}

// VerifyToken validates the token signature and expiry and returns the
// subject claim. All failures collapse to ErrUnauthorized; the precise
// cause is logged, never surfaced.
func (v *HMACVerifier) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks - require HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return "", domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", domain.ErrUnauthorized
	}
	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return "", domain.ErrUnauthorized
	}

	return claims.Subject, nil
}

// IssueToken signs a token for the given user. Used by the CLI and by
// tests; the server itself only verifies.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
