// File: internal/middleware/session.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/iyunix/go-loanform/internal/auth"
	"github.com/iyunix/go-loanform/internal/services"
	"github.com/iyunix/go-loanform/internal/services/form"
)

// FormLookup finds an open form for a client.
type FormLookup interface {
	Get(id, owner string) (*form.Controller, error)
}

// FormSession resolves the session cookie to an open form and stores it,
// with the client id, in the request context.
func FormSession(forms FormLookup, secretKey []byte, logger services.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				unauthorized(w, "form session required")
				return
			}

			claims, err := auth.ValidateFormToken(cookie.Value, secretKey)
			if err != nil {
				logger.Debug("invalid form session token", "error", err)
				ClearSessionCookie(w)
				unauthorized(w, "form session invalid")
				return
			}

			ctrl, err := forms.Get(claims.FormID, claims.ClientID)
			if err != nil {
				logger.Debug("form session points at a closed form", "form_id", claims.FormID)
				unauthorized(w, "form session expired")
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, claims.ClientID)
			ctx = context.WithValue(ctx, FormKey, ctrl)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FormFromContext returns the form resolved by FormSession.
func FormFromContext(ctx context.Context) (*form.Controller, bool) {
	ctrl, ok := ctx.Value(FormKey).(*form.Controller)
	return ctrl, ok && ctrl != nil
}

// ClientIDFromContext returns the client id resolved by FormSession.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ClientIDKey).(string)
	return id, ok && id != ""
}

// SetSessionCookie stores a form session token.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

// clientCookieMaxAge is the longest lifetime browsers accept. The cookie is
// renewed on every form open.
const clientCookieMaxAge = 400 * 24 * time.Hour

// SetClientCookie stores the signed client id.
func SetClientCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    token,
		MaxAge:   int(clientCookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
