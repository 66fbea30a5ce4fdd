package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// NewServer builds an Echo instance with the API routes and the
// middleware the server runs with. A zero timeout disables the
// per-request deadline.
func NewServer(st Store, engines Engines, notes Notifications, logger log.FieldLogger, timeout time.Duration) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	if timeout > 0 {
		e.Use(middleware.ContextTimeout(timeout))
	}

	Register(e, st, engines, notes, logger)
	return e
}

// requestLogger logs every request at debug level.
func requestLogger(logger log.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.WithFields(log.Fields{
				"method":   c.Request().Method,
				"path":     c.Path(),
				"status":   c.Response().Status,
				"duration": time.Since(start),
				"actor":    c.Request().Header.Get(HeaderUserID),
			}).Debug("request")
			return err
		}
	}
}
