// File: internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-loanform/internal/middleware"
	"github.com/iyunix/go-loanform/internal/ratelimit"
	"github.com/iyunix/go-loanform/internal/services"
)

// Limiters throttle the endpoints that can be abused. Nil limiters are skipped.
type Limiters struct {
	OTPRequest *ratelimit.MemoryRateLimiter
	OTPVerify  *ratelimit.MemoryRateLimiter
	Submit     *ratelimit.MemoryRateLimiter
}

// RouterDeps are the handlers and shared pieces the router is built from.
type RouterDeps struct {
	Form       *FormHandler
	Calculator *CalculatorHandler
	Log        *LogHandler
	Health     *HealthHandler
	Session    func(http.Handler) http.Handler
	Limiters   Limiters
	Logger     services.Logger
}

func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RecoverPanic(deps.Logger))
	r.Use(middleware.LoggingMiddleware(deps.Logger))

	// --- Public Routes ---
	health := deps.Health
	if health == nil {
		health = NewHealthHandler(nil)
	}
	r.HandleFunc("/health", health.Health).Methods("GET")
	r.HandleFunc("/health/relay", health.RelayStatus).Methods("GET")
	r.HandleFunc("/api/log", deps.Log.LogFrontendEvent).Methods("POST")
	r.HandleFunc("/api/calculator", deps.Calculator.Calculate).Methods("POST")
	r.HandleFunc("/api/forms", deps.Form.OpenForm).Methods("POST")

	// --- Form session routes ---
	api := r.PathPrefix("/api/form").Subrouter()
	api.Use(deps.Session)
	api.HandleFunc("", deps.Form.GetForm).Methods("GET")
	api.HandleFunc("/fields/{name}", deps.Form.UpdateField).Methods("PUT")
	api.HandleFunc("/fields/{name}/blur", deps.Form.BlurField).Methods("POST")
	api.Handle("/otp", limit(deps.Limiters.OTPRequest, "otp_request", deps.Logger, http.HandlerFunc(deps.Form.RequestOTP))).Methods("POST")
	api.Handle("/otp/verify", limitWithReset(deps.Limiters.OTPVerify, "otp_verify", deps.Logger, http.HandlerFunc(deps.Form.VerifyOTP))).Methods("POST")
	api.Handle("/submit", limit(deps.Limiters.Submit, "submit", deps.Logger, http.HandlerFunc(deps.Form.Submit))).Methods("POST")
	api.HandleFunc("/calculator", deps.Form.Calculate).Methods("POST")
	api.HandleFunc("/notice", deps.Form.DismissNotice).Methods("DELETE")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Not Found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})
	return r
}

func limit(l *ratelimit.MemoryRateLimiter, name string, logger services.Logger, h http.Handler) http.Handler {
	if l == nil {
		return h
	}
	return middleware.RateLimitMiddleware(l, name, logger)(h)
}

// limitWithReset forgets a client's attempts once the handler succeeds.
func limitWithReset(l *ratelimit.MemoryRateLimiter, name string, logger services.Logger, h http.Handler) http.Handler {
	if l == nil {
		return h
	}
	return middleware.RateLimitMiddleware(l, name, logger)(middleware.ResetOnSuccess(l, name)(h))
}
