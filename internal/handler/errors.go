package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/shop-api/internal/apperr"
)

// errorBody is the payload of every failed request.
type errorBody struct {
	Message   string      `json:"message"`
	Status    string      `json:"status"`
	Data      interface{} `json:"data"`
	ErrorCode apperr.Kind `json:"errorCode"`
	Timestamp time.Time   `json:"timestamp"`
}

// fromHTTPError classifies errors produced by echo itself (routing,
// binding, body limits).
func fromHTTPError(he *echo.HTTPError) (apperr.Kind, int, string) {
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	switch {
	case he.Code == http.StatusNotFound:
		return apperr.KindNotFound, he.Code, msg
	case he.Code == http.StatusUnauthorized:
		return apperr.KindAuthInvalid, he.Code, msg
	case he.Code == http.StatusForbidden:
		return apperr.KindForbidden, he.Code, msg
	case he.Code == http.StatusTooManyRequests:
		return apperr.KindRateLimited, he.Code, msg
	case he.Code >= 500:
		return apperr.KindInternal, http.StatusInternalServerError, "internal server error"
	default:
		return apperr.KindValidation, he.Code, msg
	}
}

// NewHTTPErrorHandler renders every error as an errorBody. Internal causes
// are logged and never sent to the client.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			kind   apperr.Kind
			status int
			msg    string
			ae     *apperr.Error
			he     *echo.HTTPError
		)
		switch {
		case errors.As(err, &ae):
			kind, status, msg = ae.Kind, apperr.Status(ae.Kind), ae.Message
		case errors.As(err, &he):
			kind, status, msg = fromHTTPError(he)
		default:
			kind, status, msg = apperr.KindInternal, http.StatusInternalServerError, "internal server error"
		}

		l, ok := c.Get("logger").(*zap.Logger)
		if !ok {
			l = log
		}
		if status >= http.StatusInternalServerError {
			l.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		} else {
			l.Debug("request rejected", zap.String("kind", string(kind)), zap.Error(err))
		}

		body := errorBody{Message: msg, Status: "error", ErrorCode: kind, Timestamp: time.Now().UTC()}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn("writing error response", zap.Error(werr))
		}
	}
}
