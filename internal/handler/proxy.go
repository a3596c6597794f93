package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"maneh-edge/internal/model"
	"maneh-edge/internal/service"
)

const retryAfterSeconds = "30"

// ProxyHandler forwards /v/{id} requests to the video origin.
type ProxyHandler struct {
	service *service.VideoService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.VideoService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request and streams a successful upstream body back.
// The identifier is read from the escaped path, as it appears on the wire.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:     req.Context(),
		Method:  req.Method,
		VideoID: strings.TrimPrefix(req.URL.EscapedPath(), videoPrefix),
		Header:  req.Header,
		Body:    req.Body,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !resp.OK() {
		h.logger.Warn("upstream returned error status",
			"status", resp.StatusCode,
			"path", req.URL.Path,
		)
		return plain(c, resp.StatusCode, fmt.Sprintf("Upstream error: %d", resp.StatusCode))
	}

	// Upstream headers first, then cache policy and markers, then the
	// security set.
	header := c.Response().Header()
	for key, vals := range service.PassthroughHeaders(resp.Header) {
		header[key] = vals
	}
	applySecurityHeaders(header)

	c.Response().WriteHeader(resp.StatusCode)

	// The status is already sent, so a failed copy (client gone, upstream
	// reset) can only be logged.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

// mapError turns expected failures into responses. Anything else is returned
// for the fatal error handler.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidVideoID):
		h.logger.Debug("rejected video id", "path", c.Request().URL.Path)
		return plain(c, http.StatusBadRequest, "Invalid video ID format.")
	case errors.Is(err, service.ErrInvalidTarget):
		h.logger.Error("invalid target url", "err", err, "path", c.Request().URL.Path)
		return plain(c, http.StatusBadRequest, "Invalid target URL.")
	}

	var ue *service.UpstreamError
	if errors.As(err, &ue) {
		h.logger.Error("upstream unavailable",
			"err", ue,
			"path", c.Request().URL.Path,
		)
		// The transport error text is shown to the client on purpose; the
		// fatal handler, by contrast, never leaks its error.
		c.Response().Header().Set("Retry-After", retryAfterSeconds)
		return plain(c, http.StatusBadGateway, "Service temporarily unavailable: "+ue.Error())
	}

	return err
}
