package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/reelcraft/reelcraft-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Authentication failure classes. ErrConfiguration is kept distinct from
// ErrInvalidCredential so operators can tell a bad deploy from a bad token.
var (
	// ErrMissingCredential indicates no bearer token was supplied.
	ErrMissingCredential = errors.New("auth: missing credential")
	// ErrInvalidCredential indicates the token failed verification.
	ErrInvalidCredential = errors.New("auth: invalid credential")
	// ErrConfiguration indicates the verification secret is not configured.
	ErrConfiguration = errors.New("auth: identity secret not configured")
)

// Identity is the authenticated caller with their resolved plan.
type Identity struct {
	UserID string
	Email  string
	Plan   string
}

// Gateway verifies identity-provider access tokens and resolves the
// caller's active plan. Read-only and safe to retry.
type Gateway struct {
	db     *gorm.DB
	secret string
}

// NewGateway constructs a Gateway.
func NewGateway(db *gorm.DB, secret string) *Gateway {
	return &Gateway{db: db, secret: strings.TrimSpace(secret)}
}

// accessClaims maps the identity provider's token claims.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticate extracts and verifies a bearer token from an Authorization
// header value and resolves the caller's plan. A user without an active
// subscription row is on the free tier; that lookup failing is not an
// authentication error.
func (g *Gateway) Authenticate(ctx context.Context, authorizationHeader string) (Identity, error) {
	token, errExtract := extractBearer(authorizationHeader)
	if errExtract != nil {
		return Identity{}, errExtract
	}
	if g == nil || g.secret == "" {
		return Identity{}, ErrConfiguration
	}

	claims := &accessClaims{}
	parsed, errParse := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(g.secret), nil
	})
	if errParse != nil || !parsed.Valid {
		return Identity{}, ErrInvalidCredential
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return Identity{}, ErrInvalidCredential
	}

	identity := Identity{
		UserID: userID,
		Email:  strings.TrimSpace(claims.Email),
		Plan:   g.resolvePlan(ctx, userID),
	}
	return identity, nil
}

// resolvePlan returns the user's active plan, defaulting to free when no
// subscription row exists or the lookup fails.
func (g *Gateway) resolvePlan(ctx context.Context, userID string) string {
	if g.db == nil {
		return models.PlanFree
	}
	var sub models.Subscription
	errFind := g.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Take(&sub).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			log.WithError(errFind).WithField("user_id", userID).Warn("auth: subscription lookup failed, defaulting to free")
		}
		return models.PlanFree
	}
	plan := strings.TrimSpace(sub.Plan)
	if plan == "" {
		return models.PlanFree
	}
	return plan
}

// extractBearer pulls the token out of an Authorization header value.
func extractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredential
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", ErrMissingCredential
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}
