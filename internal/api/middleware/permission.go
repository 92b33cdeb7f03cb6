package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chainsocial/social-api/internal/core/domain"
	"github.com/chainsocial/social-api/internal/core/service"
)

// RequirePermission lets the request through when the session holds any
// of required. It must run after Auth.
func RequirePermission(required ...domain.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			granted, _ := c.Get(ContextPermissions).([]domain.Permission)
			if !service.Intersects(required, granted) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
