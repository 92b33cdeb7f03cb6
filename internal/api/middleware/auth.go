package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/chainsocial/social-api/internal/core/domain"
)

// Context keys set by Auth.
const (
	ContextUserID      = "user_id"
	ContextUsername    = "username"
	ContextWallet      = "wallet"
	ContextPermissions = "permissions"
)

// Auth validates the session JWT and injects its claims into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims.GetSubject()
			c.Set(ContextUserID, sub)
			c.Set(ContextUsername, claims["username"])
			c.Set(ContextWallet, claims["wallet"])
			c.Set(ContextPermissions, permissionsClaim(claims["permissions"]))

			return next(c)
		}
	}
}

// permissionsClaim decodes the JSON array of the permissions claim.
func permissionsClaim(v interface{}) []domain.Permission {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	perms := make([]domain.Permission, 0, len(raw))
	for _, p := range raw {
		if s, ok := p.(string); ok {
			perms = append(perms, domain.Permission(s))
		}
	}
	return perms
}
