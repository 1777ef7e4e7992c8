package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/middleware"
)

// RegisterReviews registers /reviews. The author-or-admin rule is checked
// by the service against the stored review.
func RegisterReviews(e *echo.Echo, r *handler.ReviewHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/reviews", middleware.JWTAuth(jwtSecret), limit)
	g.GET("/:productId", r.ListForProduct)
	g.POST("", r.Create)
	g.PUT("/:id", r.Update)
	g.DELETE("/:id", r.Delete)
}
