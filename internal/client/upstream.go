// Package client provides the upstream HTTP client for the video origin.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"maneh-edge/internal/config"
	"maneh-edge/internal/metrics"
	"maneh-edge/internal/model"
)

// ErrUpstreamTimeout is returned when the upstream does not produce response
// headers within the configured timeout.
var ErrUpstreamTimeout = errors.New("timeout waiting for upstream response")

// UpstreamClient sends requests to the video origin.
type UpstreamClient struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	timeout := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		// No http.Client.Timeout: it would also cap body streaming, and video
		// bodies can legitimately take longer than the header deadline.
		// Redirects are followed with the net/http default policy.
		httpClient: &http.Client{Transport: transport},
		timeout:    timeout,
		logger:     logger.With("component", "upstream_client"),
		metrics:    m,
	}
}

// DoStream executes a request and returns the response body as a stream.
// The caller is responsible for closing the returned body.
//
// The configured timeout covers connecting, following redirects and waiting
// for response headers. Once headers arrive the body is no longer subject to
// it; the request context (client disconnect) still cancels the transfer.
func (c *UpstreamClient) DoStream(ctx context.Context, method, url string, header http.Header, body io.Reader) (*model.ProxyResponse, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	var timer *time.Timer
	if c.timeout > 0 {
		timer = time.AfterFunc(c.timeout, func() { cancel(ErrUpstreamTimeout) })
	}

	c.logger.Debug("upstream request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via ProxyResponse
	duration := time.Since(start).Seconds()

	label := metrics.NormalizeMethod(req.Method)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(label).Observe(duration)
	}

	if timer != nil && !timer.Stop() && err == nil {
		// The deadline fired between the response arriving and the timer
		// being stopped; the body is already canceled.
		_ = resp.Body.Close()
		err = ErrUpstreamTimeout
	}

	if err != nil {
		if errors.Is(context.Cause(ctx), ErrUpstreamTimeout) {
			err = fmt.Errorf("%w after %s", ErrUpstreamTimeout, c.timeout)
		}
		cancel(nil)
		c.recordFailure(err)
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

func (c *UpstreamClient) recordFailure(err error) {
	if c.metrics == nil {
		return
	}
	reason := "network"
	switch {
	case errors.Is(err, ErrUpstreamTimeout):
		reason = "timeout"
	case errors.Is(err, context.Canceled):
		reason = "canceled"
	}
	c.metrics.UpstreamFailures.WithLabelValues(reason).Inc()
}

// cancelOnClose releases the request context once the caller is done with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelCauseFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel(nil)
	return err
}
