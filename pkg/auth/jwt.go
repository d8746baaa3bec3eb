// Package auth verifies the bearer tokens issued by the storefront's
// identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

// AdminRole is granted to tokens carrying role "admin" or the boolean custom
// claim admin=true.
const AdminRole = "admin"

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid token")

// TokenValidator verifies a raw bearer token.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Claims is the identity extracted from a verified token.
type Claims struct {
	Subject string
	Email   string
	Roles   []string
}

// HasRole reports whether role is among the claims' roles.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// JWKSValidator checks RS256 signatures against a JWKS and enforces issuer,
// audience and expiry.
type JWKSValidator struct {
	keys     *JWKSClient
	issuer   string
	audience string
	logger   logger.Logger
}

// NewJWKSValidator creates a validator. Empty issuer or audience disables
// that check.
func NewJWKSValidator(keys *JWKSClient, issuer, audience string, log logger.Logger) *JWKSValidator {
	return &JWKSValidator{keys: keys, issuer: issuer, audience: audience, logger: log}
}

// Validate verifies token and returns its claims.
func (v *JWKSValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("missing kid in token header")
		}
		return v.keys.GetKey(ctx, kid)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	claims := extractClaims(mapClaims)
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	v.logger.Debug("token validated", "subject", claims.Subject)
	return claims, nil
}

func extractClaims(m jwt.MapClaims) *Claims {
	claims := &Claims{}
	claims.Subject, _ = m.GetSubject()
	if email, ok := m["email"].(string); ok {
		claims.Email = strings.ToLower(strings.TrimSpace(email))
	}

	seen := map[string]bool{}
	addRole := func(role string) {
		role = strings.TrimSpace(role)
		if role != "" && !seen[role] {
			seen[role] = true
			claims.Roles = append(claims.Roles, role)
		}
	}
	for _, key := range []string{"role", "roles"} {
		switch v := m[key].(type) {
		case string:
			for _, r := range strings.Fields(v) {
				addRole(r)
			}
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					addRole(s)
				}
			}
		}
	}
	if admin, ok := m["admin"].(bool); ok && admin {
		addRole(AdminRole)
	}
	return claims
}

type claimsContextKey struct{}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// GetClaims returns the claims stored by WithClaims, or nil.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}
