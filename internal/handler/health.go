package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// healthVersion is the payload schema version reported by /health, not the build version.
const healthVersion = "1.0.0"

// isoMillis matches the ISO-8601 form browsers produce for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// HealthHandler serves the liveness payload.
type HealthHandler struct {
	now func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

type healthPayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Check returns the health payload. It has no dependencies to probe.
func (h *HealthHandler) Check(c echo.Context) error {
	body, err := json.Marshal(healthPayload{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(isoMillis),
		Version:   healthVersion,
	})
	if err != nil {
		return fmt.Errorf("encode health payload: %w", err)
	}

	applySecurityHeaders(c.Response().Header())
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}
