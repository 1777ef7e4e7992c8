package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/middleware"
)

// RegisterOrders registers /orders. Ownership is enforced by the service,
// so any authenticated role may reach these handlers.
func RegisterOrders(e *echo.Echo, o *handler.OrderHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/orders", middleware.JWTAuth(jwtSecret), limit)
	g.GET("", o.List)
	g.POST("", o.Create)
}
