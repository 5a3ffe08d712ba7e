// File: internal/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iyunix/go-loanform/internal/services/form"
	"github.com/iyunix/go-loanform/internal/services/loancalc"
	"github.com/iyunix/go-loanform/internal/services/otp"
)

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps form errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrFormNotFound):
		return http.StatusNotFound
	case errors.Is(err, form.ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, form.ErrSubmissionFailed):
		return http.StatusBadGateway
	case errors.Is(err, form.ErrValidationFailed),
		errors.Is(err, otp.ErrPhoneInvalid),
		errors.Is(err, otp.ErrNoSession),
		errors.Is(err, otp.ErrCodeMismatch),
		errors.Is(err, otp.ErrCodeExpired),
		errors.Is(err, otp.ErrTooManyAttempts),
		errors.Is(err, loancalc.ErrInvalidQuote):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
