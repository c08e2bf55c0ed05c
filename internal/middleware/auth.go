package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pharmassist-medsafety/internal/domain"
)

type authContextKey string

const (
	userIDKey                   = "user_id"
	userIDCtxKey authContextKey = "user_id"
)

// Claims are the bearer token claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	key      []byte
	issuer   string
	audience string
}

// NewAuthenticator builds an authenticator from the auth config section.
func NewAuthenticator(cfg domain.AuthConfig) (*Authenticator, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("auth signing key is required")
	}
	return &Authenticator{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

// Parse validates a raw token and returns its claims.
func (a *Authenticator) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}

// Issue signs a token for userID. It backs medsafetyctl and tests.
func (a *Authenticator) Issue(userID, email, displayName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:       email,
		DisplayName: displayName,
	}
	if a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

// RequireAuth rejects requests without a valid bearer token and exposes the
// subject through UserIDFromContext.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			Abort(c, http.StatusUnauthorized, domain.CodeUnauthenticated, "User not authenticated")
			return
		}

		claims, err := a.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			Abort(c, http.StatusUnauthorized, domain.CodeUnauthenticated, "User not authenticated")
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userIDCtxKey, claims.Subject))
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(userIDCtxKey).(string)
	return uid
}
