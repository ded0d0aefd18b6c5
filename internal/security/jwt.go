package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid indicates an admin token failed verification.
var ErrTokenInvalid = errors.New("security: invalid token")

// AdminClaims are the claims carried by admin session tokens.
type AdminClaims struct {
	AdminID  uint64 `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SignAdminToken issues an admin session token.
func SignAdminToken(secret string, adminID uint64, username string, expiry time.Duration) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("security: jwt secret not configured")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	now := time.Now().UTC()
	claims := AdminClaims{
		AdminID:  adminID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAdminToken verifies an admin session token and returns its claims.
func ParseAdminToken(secret, token string) (*AdminClaims, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrTokenInvalid
	}
	claims := &AdminClaims{}
	parsed, errParse := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.AdminID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
