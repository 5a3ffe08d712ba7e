// File: internal/handlers/health_handler.go
package handlers

import (
	"context"
	"net/http"

	"github.com/iyunix/go-loanform/internal/services/transport"
)

// RelayHealth is the submission relay as seen by the health endpoint.
type RelayHealth interface {
	HealthCheck(ctx context.Context) transport.ProviderStatus
}

type HealthHandler struct {
	Relay RelayHealth
}

func NewHealthHandler(relay RelayHealth) *HealthHandler {
	return &HealthHandler{Relay: relay}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// RelayStatus reports the relay status; 503 when submissions cannot be delivered.
func (h *HealthHandler) RelayStatus(w http.ResponseWriter, r *http.Request) {
	if h.Relay == nil {
		writeJSON(w, http.StatusOK, transport.ProviderStatus{IsHealthy: true, Message: "no relay configured; submissions are logged"})
		return
	}
	status := h.Relay.HealthCheck(r.Context())
	code := http.StatusOK
	if !status.IsHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
