// Package server exposes the media pipeline over HTTP: multipart upload,
// media CRUD, storage stats, and static serving of the upload area.
package server

import (
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/storage"
)

// New builds the echo instance with logging and recovery middleware and
// the registered handlers. The static route is the serving side of the
// content store's public-URL contract.
func New(logger *zap.Logger, h *MediaHandler, publicPrefix, uploadDir string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(RequestLogger(logger))

	// Only the artifact subareas are public; temp stays private.
	for _, sub := range storage.Subareas {
		e.Static("/"+publicPrefix+"/"+sub, filepath.Join(uploadDir, sub))
	}
	h.Register(e)

	return e
}

// RequestLogger logs every request with timing and status.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logLevel := zapcore.InfoLevel
			if c.Response().Status >= 500 {
				logLevel = zapcore.ErrorLevel
			}

			logger.Check(logLevel, "http request").Write(
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("request_id", c.Request().Header.Get("X-Request-Id")),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)

			return nil
		}
	}
}
