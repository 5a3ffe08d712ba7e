// File: internal/handlers/log_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iyunix/go-loanform/internal/services"
)

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

// LogHandler forwards browser events into the server log.
type LogHandler struct {
	Logger services.Logger
}

func NewLogHandler(logger services.Logger) *LogHandler {
	return &LogHandler{Logger: logger}
}

// LogFrontendEvent handles incoming log requests from the frontend.
func (h *LogHandler) LogFrontendEvent(w http.ResponseWriter, r *http.Request) {
	var payload FrontendLogPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	kv := []interface{}{"client_message", payload.Message, "context", payload.Context}
	switch strings.ToLower(payload.Level) {
	case "error":
		h.Logger.Error("client log", kv...)
	case "warn", "warning":
		h.Logger.Warn("client log", kv...)
	case "debug":
		h.Logger.Debug("client log", kv...)
	default:
		h.Logger.Info("client log", kv...)
	}

	w.WriteHeader(http.StatusNoContent)
}
