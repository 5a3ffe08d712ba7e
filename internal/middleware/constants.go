// File: internal/middleware/constants.go
package middleware

// Context keys for middleware communication
type contextKey string

const (
	ClientIDKey contextKey = "client_id"
	FormKey     contextKey = "form"
)

// SessionCookieName carries the signed form session token.
const SessionCookieName = "loanform_session"

// ClientCookieName carries the signed client id that keys the stored draft.
const ClientCookieName = "loanform_client"
