package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContentSecurityPolicy is sent with every non-fatal response. The ad network
// is the only third-party script origin the blog loads.
const ContentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' https://pagead2.googlesyndication.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: https:; " +
	"media-src 'self' https:; " +
	"frame-src 'self' https:; " +
	"connect-src 'self' https:"

// securityHeaders is applied, in order, after any other response header has
// been set, so it wins every key collision.
var securityHeaders = []struct{ name, value string }{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=(), interest-cohort=()"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", ContentSecurityPolicy},
}

// applySecurityHeaders overwrites h with the security header set.
func applySecurityHeaders(h http.Header) {
	for _, sh := range securityHeaders {
		h.Set(sh.name, sh.value)
	}
}

// resetToFatalHeaders leaves only the reduced header set used by 500 responses.
func resetToFatalHeaders(h http.Header) {
	for k := range h {
		delete(h, k)
	}
	h.Set(echo.HeaderContentType, "text/plain")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
}

// plain writes a text/plain response carrying the security header set.
func plain(c echo.Context, status int, body string) error {
	applySecurityHeaders(c.Response().Header())
	return c.String(status, body)
}
