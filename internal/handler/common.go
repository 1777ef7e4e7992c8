package handler // handler defines http handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/apperr"
)

// requestTimeout bounds the store work done for one request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.KindValidation, "invalid "+name)
	}
	return id, nil
}

// bind decodes the request body, reporting malformed input as VALIDATION.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid body", err)
	}
	return nil
}

// ack is the body of operations that have nothing else to return.
func ack(message string, data interface{}) echo.Map {
	return echo.Map{"message": message, "status": "success", "data": data}
}
