package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"strings" // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/utils"
)

// bearerToken extracts the raw token from the Authorization header.  The
// second result is false when the header is absent or not a bearer
// credential.
func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller's identity on the context.  A missing header fails
// with AUTH_MISSING; any token that does not verify fails with
// AUTH_INVALID.  Handlers read the caller with CurrentIdentity.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return apperr.New(apperr.KindAuthMissing, "missing bearer token")
			}
			id, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return apperr.Wrap(apperr.KindAuthInvalid, "invalid token", err)
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalJWT behaves like JWTAuth except that a request without an
// Authorization header continues as a guest.  A header that is present but
// invalid is still rejected so a bad token is never silently downgraded.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				SetIdentity(c, model.Guest())
				return next(c)
			}
			return JWTAuth(secret)(next)(c)
		}
	}
}
