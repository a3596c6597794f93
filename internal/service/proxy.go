// Package service implements video identifier handling and upstream forwarding.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"maneh-edge/internal/client"
	"maneh-edge/internal/config"
	"maneh-edge/internal/model"
)

var (
	// ErrInvalidVideoID is returned when the sanitized identifier is empty or
	// outside the accepted length range.
	ErrInvalidVideoID = errors.New("invalid video ID format")

	// ErrInvalidTarget is returned when the constructed upstream URL does not parse.
	ErrInvalidTarget = errors.New("invalid target URL")
)

// UpstreamError reports that the upstream could not be reached or did not
// answer in time. Its message is the transport error's message.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

const (
	minVideoIDLen = 3
	maxVideoIDLen = 50

	fallbackUserAgent     = "Maneh-Proxy/1.0"
	defaultAccept         = "*/*"
	defaultAcceptLanguage = "en-US,en;q=0.9"
	unknownClientIP       = "unknown"

	// PassthroughCacheControl replaces whatever caching policy the upstream sent.
	PassthroughCacheControl = "public, max-age=300, s-maxage=600, stale-while-revalidate=86400"
	cacheStatus             = "MISS"
	proxyBy                 = "Maneh-Edge"
)

// disallowedIDChars matches everything a video identifier may not contain.
var disallowedIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// hopByHopHeaders are never copied from an upstream response.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// VideoService forwards /v/ requests to the video origin.
type VideoService struct {
	client       *client.UpstreamClient
	logger       *slog.Logger
	upstreamBase string
	newRequestID func() string
}

// NewVideoService creates a VideoService.
func NewVideoService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) *VideoService {
	return &VideoService{
		client:       c,
		logger:       logger.With("component", "video_service"),
		upstreamBase: strings.TrimRight(cfg.Upstream.BaseURL, "/") + cfg.Upstream.Path,
		newRequestID: uuid.NewString,
	}
}

// SanitizeVideoID strips every character outside [A-Za-z0-9_-].
func SanitizeVideoID(raw string) string {
	return disallowedIDChars.ReplaceAllString(raw, "")
}

// ValidateVideoID checks an already sanitized identifier. Length is measured
// after sanitization, never on the raw path tail.
func ValidateVideoID(id string) error {
	if id == "" || len(id) < minVideoIDLen || len(id) > maxVideoIDLen {
		return ErrInvalidVideoID
	}
	return nil
}

// TargetURL builds and parses the upstream URL for a sanitized identifier.
func (s *VideoService) TargetURL(id string) (*url.URL, error) {
	raw := s.upstreamBase + "?id=" + url.QueryEscape(id)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	return u, nil
}

// Forward sanitizes and validates the identifier, then sends the request to
// the video origin. The caller is responsible for closing the response body.
//
// Validation failures return ErrInvalidVideoID or ErrInvalidTarget. Transport
// failures and timeouts return *UpstreamError. A non-2xx upstream status is
// not an error.
func (s *VideoService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	id := SanitizeVideoID(pr.VideoID)
	if err := ValidateVideoID(id); err != nil {
		return nil, err
	}

	target, err := s.TargetURL(id)
	if err != nil {
		return nil, err
	}

	header := s.buildRequestHeaders(pr.Header)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"video_id", id,
		"request_id", header.Get("X-Request-ID"),
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, target.String(), header, pr.Body)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	resp.Header = filterResponseHeaders(resp.Header)
	return resp, nil
}

// buildRequestHeaders produces the outbound header set. Nothing from the
// inbound request is forwarded except the values read here.
func (s *VideoService) buildRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	dst.Set("Accept", valueOr(src.Get("Accept"), defaultAccept))
	dst.Set("Accept-Language", valueOr(src.Get("Accept-Language"), defaultAcceptLanguage))
	dst.Set("User-Agent", valueOr(src.Get("User-Agent"), fallbackUserAgent))
	dst.Set("X-Proxy-Request", "true")
	dst.Set("X-Forwarded-For", ClientIP(src))
	dst.Set("Cache-Control", "no-cache")
	dst.Set("X-Request-ID", s.newRequestID())
	return dst
}

// ClientIP resolves the caller's address from CF-Connecting-IP, then
// X-Forwarded-For, then the literal "unknown".
func ClientIP(h http.Header) string {
	if ip := h.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := h.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return unknownClientIP
}

// filterResponseHeaders drops hop-by-hop headers from the upstream response.
func filterResponseHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	for _, h := range hopByHopHeaders {
		dst.Del(h)
	}
	return dst
}

// PassthroughHeaders returns the upstream headers with the edge cache policy
// and proxy markers applied on top.
func PassthroughHeaders(upstream http.Header) http.Header {
	dst := upstream.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	dst.Set("Cache-Control", PassthroughCacheControl)
	dst.Set("X-Cache-Status", cacheStatus)
	dst.Set("X-Proxy-By", proxyBy)
	return dst
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
