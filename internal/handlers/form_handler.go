// File: internal/handlers/form_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iyunix/go-loanform/internal/auth"
	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/dtos"
	"github.com/iyunix/go-loanform/internal/middleware"
	"github.com/iyunix/go-loanform/internal/services"
	"github.com/iyunix/go-loanform/internal/services/form"
)

// FormHandler exposes the form instance events over HTTP.
type FormHandler struct {
	Forms         *form.Registry
	SecretKey     []byte
	SessionTTL    time.Duration
	SecureCookies bool
	Logger        services.Logger
}

func NewFormHandler(forms *form.Registry, secretKey []byte, sessionTTL time.Duration, secureCookies bool, logger services.Logger) *FormHandler {
	if sessionTTL <= 0 {
		sessionTTL = auth.DefaultSessionTTL
	}
	return &FormHandler{
		Forms:         forms,
		SecretKey:     secretKey,
		SessionTTL:    sessionTTL,
		SecureCookies: secureCookies,
		Logger:        logger,
	}
}

// OpenForm is the page load: a new instance is created, the client's draft
// restored and the session cookie set. A returning client keeps its id, and
// therefore its draft, through the client cookie or an expired session.
func (h *FormHandler) OpenForm(w http.ResponseWriter, r *http.Request) {
	clientID := h.clientID(r)

	ctrl, err := h.Forms.Open(r.Context(), clientID)
	if err != nil {
		h.Logger.Error("failed to open form", "error", err)
		writeError(w, "Could not open form", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateFormToken(clientID, ctrl.ID(), h.SecretKey, h.SessionTTL)
	if err != nil {
		h.Logger.Error("failed to sign form session", "error", err)
		writeError(w, "Could not open form", http.StatusInternalServerError)
		return
	}
	clientToken, err := auth.GenerateClientToken(clientID, h.SecretKey)
	if err != nil {
		h.Logger.Error("failed to sign client id", "error", err)
		writeError(w, "Could not open form", http.StatusInternalServerError)
		return
	}
	middleware.SetSessionCookie(w, token, h.SessionTTL, h.SecureCookies)
	middleware.SetClientCookie(w, clientToken, h.SecureCookies)
	writeJSON(w, http.StatusCreated, dtos.FormResponseDTO{Form: ctrl.Snapshot()})
}

func (h *FormHandler) clientID(r *http.Request) string {
	for _, name := range []string{middleware.ClientCookieName, middleware.SessionCookieName} {
		cookie, err := r.Cookie(name)
		if err != nil {
			continue
		}
		if id, err := auth.ClientIDFromToken(cookie.Value, h.SecretKey); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

// GetForm returns the current snapshot.
func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := middleware.FormFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, dtos.FormResponseDTO{Form: ctrl.Snapshot()})
}

// UpdateField applies an input event to one field.
func (h *FormHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := middleware.FormFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req dtos.FieldUpdateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	name := mux.Vars(r)["name"]
	res, err := ctrl.SetField(r.Context(), name, req.Value)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, dtos.FormResponseDTO{
		Form:       ctrl.Snapshot(),
		Validation: domain.ValidationResult{name: res},
	})
}

// BlurField validates one field as it loses focus.
func (h *FormHandler) BlurField(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := middleware.FormFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	name := mux.Vars(r)["name"]
	res, err := ctrl.Blur(name)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, dtos.FormResponseDTO{
		Form:       ctrl.Snapshot(),
		Validation: domain.ValidationResult{name: res},
	})
}

// RequestOTP issues a code for the phone currently entered.
func (h *FormHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := middleware.FormFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	code, err := ctrl.RequestCode()
	if err != nil {
		writeJSON(w, statusFor(err), dtos.FormResponseDTO{Form: ctrl.Snapshot(), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dtos.FormResponseDTO{
		Form: ctrl.Snapshot(),
		OTP:  &dtos.OTPRequestResponseDTO{Code: code, CodeLength: len(code)},
	})
}

// VerifyOTP checks the code the user entered.
func (h *FormHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := middleware.FormFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req dtos.OTPVerifyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := ctrl.VerifyCode(req.Code); err != nil {
		writeJSON(w, statusFor(err), dtos.FormResponseDTO{Form: ctrl.Snapshot(), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dtos.FormResponseDTO{Form: ctrl.Snapshot()})
}

// Submit runs full validation and, when it passes, delivers the application.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := middleware.FormFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req dtos.SubmitRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}

	result, err := ctrl.Submit(r.Context(), req.ChallengeToken)
	resp := dtos.FormResponseDTO{Form: ctrl.Snapshot(), Validation: result}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, statusFor(err), resp)
}

// Calculate runs the calculator embedded in the form page.
func (h *FormHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := middleware.FormFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req dtos.CalculatorRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}

	_, err := ctrl.ComputeMonthlyPayment(req.Amount, req.TermMonths, req.AnnualRatePercent)
	resp := dtos.FormResponseDTO{Form: ctrl.Snapshot()}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, statusFor(err), resp)
}

// DismissNotice closes the notice modal.
func (h *FormHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := middleware.FormFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ctrl.DismissNotice()
	w.WriteHeader(http.StatusNoContent)
}
