// Package middleware provides Echo middleware for request IDs, logging,
// metrics and inbound header hygiene.
package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestIDKey is the echo.Context key holding the inbound request ID.
const RequestIDKey = "request_id"

// RequestID returns Echo's request ID middleware backed by UUIDv4. An inbound
// X-Request-ID is kept; otherwise a new one is generated. The ID is echoed on
// the response and stored under RequestIDKey.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(RequestIDKey, id)
		},
	})
}

// RequestLogger returns an Echo middleware that logs each request with slog.
// Errors from inner handlers are sent to the error handler first so the
// logged status is the one the client received.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			level := slog.LevelInfo
			switch {
			case res.Status >= 500:
				level = slog.LevelError
			case res.Status >= 400:
				level = slog.LevelWarn
			}

			requestID, _ := c.Get(RequestIDKey).(string)

			logger.Log(req.Context(), level, "request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestID,
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			)

			return nil
		}
	}
}
