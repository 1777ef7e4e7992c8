package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/model"
)

// RegisterCatalog registers /products. Reads need any valid token; writes
// additionally need the admin role.
func RegisterCatalog(e *echo.Echo, p *handler.ProductHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/products", middleware.JWTAuth(jwtSecret), limit)
	g.GET("", p.List)
	g.GET("/:id", p.Get)

	admin := middleware.RequireRole(model.RoleAdmin)
	g.POST("", p.Create, admin)
	g.PUT("/:id", p.Update, admin)
	g.DELETE("/:id", p.Delete, admin)
}
