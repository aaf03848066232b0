package middleware

import (
	"context"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"tleenotes/internal/auth"
	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/model"
)

const (
	claimsKey    = "claims"
	principalKey = "principal"
)

// PrincipalLoader resolves verified claims to the active account they name.
type PrincipalLoader interface {
	Principal(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

// JWT verifies the bearer access token with the service's own validation rules and
// stores the resulting *auth.Claims in the context.
func JWT(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateAccessToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: "not authenticated",
				Code:  "INVALID_TOKEN",
			})
		},
	})
}

// LoadPrincipal loads the account behind the verified claims. Deleted
// accounts and inactive accounts are rejected with 401.
func LoadPrincipal(loader PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(claimsKey).(*auth.Claims)
			if !ok {
				return apperrors.ErrInvalidToken
			}
			user, err := loader.Principal(c.Request().Context(), claims)
			if err != nil {
				return err
			}
			c.Set(principalKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the account loaded by LoadPrincipal.
func CurrentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get(principalKey).(*model.User)
	if !ok || user == nil {
		return nil, apperrors.ErrInvalidToken
	}
	return user, nil
}

// SetCurrentUser stores user as the request principal.
func SetCurrentUser(c echo.Context, user *model.User) {
	c.Set(principalKey, user)
}
