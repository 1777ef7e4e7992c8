// Package metrics exposes the prometheus collectors for HTTP traffic and
// for the shop's own operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts all HTTP requests with labels
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records request duration in seconds
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	PropagationItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_propagation_items_total",
		Help: "Order items marked deleted after their product was soft-deleted",
	})

	PropagationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_propagation_failures_total",
		Help: "Orders whose items could not be marked deleted during propagation",
	})

	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_orders_created_total",
		Help: "Orders created",
	})

	// OrderCompensations counts order attempts whose already-inserted items
	// had to be removed, labelled by whether the cleanup succeeded.
	OrderCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_order_compensations_total",
		Help: "Order attempts rolled back by deleting their inserted items",
	}, []string{"result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

// Middleware records request count and duration per route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			method := c.Request().Method
			path := c.Path()
			status := strconv.Itoa(c.Response().Status)
			RequestCounter.WithLabelValues(method, path, status).Inc()
			RequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
