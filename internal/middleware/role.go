package middleware // middleware provides shared request processing for handlers

import (
	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated caller holds one of the specified roles.  It assumes
// JWTAuth ran first and stored the identity on the context.  Any other
// role aborts the request with FORBIDDEN.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[CurrentIdentity(c).Role] {
				return apperr.New(apperr.KindForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
