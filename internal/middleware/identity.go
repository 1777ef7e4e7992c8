package middleware

// identity.go holds the context plumbing shared by the auth middleware and
// the handlers: the authenticated caller is stored once under a single key.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/model"
)

const identityKey = "identity"

// SetIdentity stores the caller on the request context.
func SetIdentity(c echo.Context, id model.Identity) {
	c.Set(identityKey, id)
}

// CurrentIdentity returns the caller stored by JWTAuth or OptionalJWT. A
// request that passed through neither is a guest.
func CurrentIdentity(c echo.Context) model.Identity {
	if id, ok := c.Get(identityKey).(model.Identity); ok {
		return id
	}
	return model.Guest()
}

// userKey identifies the caller for rate limiting. Guests are told apart
// by address.
func userKey(c echo.Context, ip string) string {
	id := CurrentIdentity(c)
	if id.IsGuest() {
		return "guest-" + ip
	}
	return strconv.FormatUint(id.ID, 10)
}
