package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/handler"    // import the handlers that implement the endpoints
	"github.com/iliyamo/shop-api/internal/logger"     // request logging
	"github.com/iliyamo/shop-api/internal/metrics"    // prometheus middleware and endpoint
	"github.com/iliyamo/shop-api/internal/middleware" // JWT, role, request id and rate limiting
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/storage"
)

// Deps carries everything needed to build the HTTP server.
type Deps struct {
	JWTSecret string
	Log       *zap.Logger

	Identity *service.IdentityService
	Catalog  *service.CatalogService
	Orders   *service.OrderService
	Reviews  *service.ReviewService

	// Uploader and UploadDir enable multipart product images served at
	// /uploads. Both may be empty.
	Uploader  storage.Uploader
	UploadDir string

	// Redis is optional; without it requests are not rate limited. Leave
	// it nil rather than holding a nil *redis.Client.
	Redis     redis.Scripter
	RateLimit config.RateLimitConfig
}

// New builds the echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(d.Log)

	e.Use(middleware.RequestID())
	e.Use(logger.Middleware(d.Log))
	e.Use(metrics.Middleware())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))
	e.Use(echomw.BodyLimit("12M"))

	// The limiter sits behind authentication in every API group so that
	// per-user keys see the caller.
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	RegisterRoutes(e, d.UploadDir)
	RegisterAuth(e, handler.NewAuthHandler(d.Identity), d.JWTSecret, limit)
	RegisterCatalog(e, handler.NewProductHandler(d.Catalog, d.Uploader), d.JWTSecret, limit)
	RegisterOrders(e, handler.NewOrderHandler(d.Orders), d.JWTSecret, limit)
	RegisterReviews(e, handler.NewReviewHandler(d.Reviews), d.JWTSecret, limit)
	return e
}

// RegisterRoutes registers routes that do not require authentication and
// are not rate limited: the health check, the prometheus endpoint and
// uploaded media.
func RegisterRoutes(e *echo.Echo, uploadDir string) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if uploadDir != "" {
		e.Static("/uploads", uploadDir)
	}
}

// RegisterAuth registers signup and signin. Signup runs behind OptionalJWT
// so that an admin's token can authorize creating another admin.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/users")
	g.POST("/signup", a.Signup, middleware.OptionalJWT(jwtSecret), limit)
	g.POST("/signin", a.Signin, limit)
}
