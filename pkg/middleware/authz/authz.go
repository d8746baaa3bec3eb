// Package authz provides authentication and authorization middleware.
package authz

import (
	"net/http"
	"strings"

	"github.com/Andi3172/fullstack-tic-project/pkg/auth"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
	"github.com/Andi3172/fullstack-tic-project/pkg/server/router"
)

// ClaimsKey is the router.Context key for storing JWT claims.
const ClaimsKey = "claims"

// AdminChecker reports whether claims carry admin rights.
type AdminChecker func(*auth.Claims) bool

// Authenticate validates the bearer token in the Authorization header and
// stores the claims on both the router context and the request context.
// Missing, malformed and rejected tokens all answer 401.
func Authenticate(validator auth.TokenValidator) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return deny(c, http.StatusUnauthorized, "missing authorization header")
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return deny(c, http.StatusUnauthorized, "invalid authorization header format")
			}

			claims, err := validator.Validate(c.Request().Context(), token)
			if err != nil {
				return deny(c, http.StatusUnauthorized, "invalid token")
			}

			c.Set(ClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(auth.WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// RequireAdmin answers 401 without claims and 403 when isAdmin rejects them.
// It must run after Authenticate.
func RequireAdmin(isAdmin AdminChecker) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims := auth.GetClaims(c.Request().Context())
			if claims == nil {
				return deny(c, http.StatusUnauthorized, "missing authentication")
			}
			if !isAdmin(claims) {
				return deny(c, http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}

func deny(c router.Context, status int, message string) error {
	category := "unauthorized"
	if status == http.StatusForbidden {
		category = "forbidden"
	}
	return c.JSON(status, map[string]interface{}{
		"error":      category,
		"message":    message,
		"request_id": logger.RequestIDFromContext(c.Request().Context()),
	})
}
