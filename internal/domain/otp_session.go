// File: internal/domain/otp_session.go
package domain

import "time"

// OtpState is the position of a form in the phone verification flow.
type OtpState string

const (
	OtpIdle       OtpState = "idle"
	OtpCodeIssued OtpState = "code_issued"
	OtpVerified   OtpState = "verified"
)

// OtpSession is the single active one-time code of a form instance.
// It lives only as long as the instance and is never persisted.
type OtpSession struct {
	CodeHash       []byte    `json:"-"`
	CodeLength     int       `json:"code_length"`
	IssuedForPhone string    `json:"-"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"`
	Attempts       int       `json:"attempts"`
	Verified       bool      `json:"verified"`
}

// State derives the flow position from a possibly nil session.
func (s *OtpSession) State() OtpState {
	switch {
	case s == nil:
		return OtpIdle
	case s.Verified:
		return OtpVerified
	default:
		return OtpCodeIssued
	}
}

// Expired reports whether the session carries an expiry that has passed.
func (s *OtpSession) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// VerifiedFor reports whether the session was verified for exactly this phone.
func (s *OtpSession) VerifiedFor(phone string) bool {
	return s != nil && s.Verified && s.IssuedForPhone == phone
}
