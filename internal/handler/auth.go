package handler

import (
	"net/http" // HTTP status codes and primitives

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/shop-api/internal/middleware" // caller identity
	"github.com/iliyamo/shop-api/internal/service"    // signup and signin rules
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Identity *service.IdentityService
}

func NewAuthHandler(identity *service.IdentityService) *AuthHandler {
	if identity == nil {
		panic("nil IdentityService passed to NewAuthHandler")
	}
	return &AuthHandler{Identity: identity}
}

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"` // customer | admin, optional
}
type signinReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup: create user and return a token immediately. The route runs
// behind OptionalJWT so an admin caller can create another admin.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Identity.Signup(ctx, middleware.CurrentIdentity(c), req.Username, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// Signin: verify credentials and return a token.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Identity.Signin(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
