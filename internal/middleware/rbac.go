package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/model"
)

// RBAC enforces role-based access control on the loaded principal.
func RBAC(allowedRoles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := CurrentUser(c)
			if err != nil {
				return err
			}
			if _, ok := allowed[user.Role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
					Error: "forbidden",
					Code:  "FORBIDDEN",
				})
			}
			return next(c)
		}
	}
}
