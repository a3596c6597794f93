// Package model defines shared types for the edge proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest is an inbound /v/ request about to be forwarded upstream.
// VideoID is the raw path tail after "/v/"; it has not been sanitized yet.
type ProxyRequest struct {
	Ctx     context.Context
	Method  string
	VideoID string
	Header  http.Header
	Body    io.ReadCloser
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// OK reports whether the upstream answered with a 2xx status.
func (r *ProxyResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
