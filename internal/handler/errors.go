package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// FatalErrorHandler returns the Echo error handler that backs every route.
//
// *echo.HTTPError values raised by framework middleware (body limit and the
// like) keep their status and get the full security header set. Everything
// else is an unexpected failure: it is logged and answered with a bare 500
// carrying only Content-Type, X-Content-Type-Options and X-Frame-Options.
func FatalErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		req := c.Request()

		if c.Response().Committed {
			logger.Error("error after response was committed",
				"err", err,
				"method", req.Method,
				"path", req.URL.Path,
			)
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code != http.StatusInternalServerError {
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(he.Code)
			}
			if werr := plain(c, he.Code, msg); werr != nil {
				logger.Error("write error response", "err", werr)
			}
			return
		}

		logger.Error("unhandled error",
			"err", err,
			"method", req.Method,
			"path", req.URL.Path,
		)

		resetToFatalHeaders(c.Response().Header())
		c.Response().WriteHeader(http.StatusInternalServerError)
		if _, werr := c.Response().Write([]byte("Internal Server Error")); werr != nil {
			logger.Error("write error response", "err", werr)
		}
	}
}
