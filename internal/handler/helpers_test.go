package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"maneh-edge/internal/client"
	"maneh-edge/internal/config"
	"maneh-edge/internal/metrics"
	"maneh-edge/internal/service"
)

const testRedirectURL = "https://maneh.net/"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Site: config.SiteConfig{RedirectURL: testRedirectURL},
		Upstream: config.UpstreamConfig{
			BaseURL:         upstreamURL,
			Path:            "/embed",
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		Metrics: config.MetricsConfig{Path: "/metrics"},
	}
}

func newTestProxyHandler(cfg *config.Config) *ProxyHandler {
	logger := discardLogger()
	uc := client.NewUpstreamClient(cfg, logger, nil)
	return NewProxyHandler(service.NewVideoService(uc, cfg, logger), logger)
}

// newTestServer wires an Echo instance the way main does, minus logging and metrics middleware.
func newTestServer(t *testing.T, cfg *config.Config, m *metrics.Metrics) *echo.Echo {
	t.Helper()
	router := NewEdgeRouter(cfg, newTestProxyHandler(cfg), NewHealthHandler(), m)

	e := echo.New()
	e.HTTPErrorHandler = FatalErrorHandler(discardLogger())
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{DisablePrintStack: true}))
	RegisterRoutes(e, router)
	return e
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func assertSecurityHeaders(t *testing.T, h http.Header) {
	t.Helper()
	for _, sh := range securityHeaders {
		if got := h.Get(sh.name); got != sh.value {
			t.Errorf("%s = %q, want %q", sh.name, got, sh.value)
		}
	}
}
