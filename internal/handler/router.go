package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"maneh-edge/internal/config"
	"maneh-edge/internal/metrics"
)

const (
	videoPrefix = "/v/"
	healthPath  = "/health"
)

// EdgeRouter classifies every request by path and hands it to one branch:
// video proxy, health, metrics (when enabled) or the canonical-site redirect.
type EdgeRouter struct {
	proxy       echo.HandlerFunc
	health      *HealthHandler
	redirectURL string

	metricsPath    string
	metricsHandler http.Handler
}

// NewEdgeRouter creates an EdgeRouter. The metrics endpoint is only routed
// when enabled in config. server.body_max_bytes limits request bodies on the
// video branch only; zero disables the limit.
func NewEdgeRouter(cfg *config.Config, proxy *ProxyHandler, health *HealthHandler, m *metrics.Metrics) *EdgeRouter {
	proxyHandler := proxy.Handle
	if limit := cfg.Server.BodyMaxBytes; limit > 0 {
		proxyHandler = echomw.BodyLimit(fmt.Sprintf("%dB", limit))(proxyHandler)
	}

	r := &EdgeRouter{
		proxy:       proxyHandler,
		health:      health,
		redirectURL: cfg.Site.RedirectURL,
	}
	if cfg.Metrics.Enabled && m != nil {
		r.metricsPath = cfg.Metrics.Path
		r.metricsHandler = promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	}
	return r
}

// MetricsPath returns the routed metrics path, or "" when metrics are off.
func (r *EdgeRouter) MetricsPath() string {
	return r.metricsPath
}

// Dispatch picks the branch for a request. The first match wins.
func (r *EdgeRouter) Dispatch(c echo.Context) error {
	path := c.Request().URL.EscapedPath()

	switch {
	case strings.HasPrefix(path, videoPrefix):
		return r.proxy(c)
	case path == healthPath:
		return r.health.Check(c)
	case r.metricsHandler != nil && path == r.metricsPath:
		applySecurityHeaders(c.Response().Header())
		r.metricsHandler.ServeHTTP(c.Response(), c.Request())
		return nil
	default:
		return r.redirect(c)
	}
}

func (r *EdgeRouter) redirect(c echo.Context) error {
	applySecurityHeaders(c.Response().Header())
	return c.Redirect(http.StatusFound, r.redirectURL)
}

// RegisterRoutes sends every path and method through the EdgeRouter.
// e.Any only covers Echo's fixed method list; the not-found routes catch
// the rest (PURGE, LINK, ...) before Echo can answer 405.
func RegisterRoutes(e *echo.Echo, router *EdgeRouter) {
	e.Any("/", router.Dispatch)
	e.Any("/*", router.Dispatch)
	e.RouteNotFound("/", router.Dispatch)
	e.RouteNotFound("/*", router.Dispatch)
}
