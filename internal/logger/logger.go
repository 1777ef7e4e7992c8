// Package logger owns the process-wide zap logger and the request logging
// middleware.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string
	Environment string
	ServiceName string
	// File enables a rotating JSON file sink next to stdout when set.
	File string
}

var log = zap.NewNop()

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func isProduction(env string) bool {
	return env == "production" || env == "prod"
}

// Init builds the global logger. Production writes JSON; every other
// environment writes colored console output.
func Init(cfg LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	fields := zap.Fields(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)

	var (
		l   *zap.Logger
		err error
	)
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		consoleEnc := zap.NewDevelopmentEncoderConfig()
		if isProduction(cfg.Environment) {
			consoleEnc = zap.NewProductionEncoderConfig()
		}
		consoleEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewTee(
			zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotating), level),
			zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.AddSync(os.Stdout), level),
		)
		l = zap.New(core, zap.AddCaller(), fields)
	} else if isProduction(cfg.Environment) {
		prodConfig := zap.NewProductionConfig()
		prodConfig.Level = level
		prodConfig.EncoderConfig.TimeKey = "timestamp"
		prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err = prodConfig.Build(fields)
	} else {
		devConfig := zap.NewDevelopmentConfig()
		devConfig.Level = level
		devConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err = devConfig.Build(fields)
	}
	if err != nil {
		return nil, err
	}

	log = l
	zap.ReplaceGlobals(l)
	return l, nil
}

// L returns the global logger. Before Init it is a no-op logger.
func L() *zap.Logger {
	return log
}

// FromEcho retrieves the request-scoped logger set by Middleware.
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get("logger").(*zap.Logger); ok {
		return l
	}
	return log
}

// Middleware logs one line per request. Handler errors are resolved through
// the echo error handler first so the logged status is the one sent.
func Middleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}
			ctxLogger := base.With(zap.String("request_id", requestID))
			c.Set("logger", ctxLogger)

			if err := next(c); err != nil {
				c.Error(err)
			}

			ctxLogger.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			)
			return nil
		}
	}
}
