// File: internal/services/otp/gate.go
package otp

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/rules"
	"github.com/iyunix/go-loanform/internal/services"
	"github.com/iyunix/go-loanform/internal/ui"
)

// MinCodeLength is the shortest code the gate will issue.
const MinCodeLength = 6

var (
	ErrPhoneInvalid    = errors.New("otp: phone number is not valid")
	ErrNoSession       = errors.New("otp: no code has been requested")
	ErrCodeMismatch    = errors.New("otp: code does not match")
	ErrCodeExpired     = errors.New("otp: code has expired")
	ErrTooManyAttempts = errors.New("otp: too many failed attempts")
)

// PhoneValidator checks a field and reports the outcome in its error slot.
type PhoneValidator interface {
	ValidateField(name string) domain.FieldResult
}

// FieldSource reads the current value of a form input.
type FieldSource interface {
	Value(name string) string
}

// Policy bounds code validity. Zero TTL and zero MaxAttempts disable expiry
// and the attempt limit.
type Policy struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
}

// DefaultPolicy issues six digit codes that never expire and allow unlimited attempts.
func DefaultPolicy() Policy {
	return Policy{CodeLength: MinCodeLength}
}

// Gate issues and verifies the one-time code that unlocks final submission.
// It keeps no session of its own; callers own the OtpSession and pass it back.
type Gate struct {
	rules     *rules.RuleSet
	validator PhoneValidator
	source    FieldSource
	slots     ui.ErrorSlots
	surface   ui.Surface
	generator Generator
	policy    Policy
	now       func() time.Time
	logger    services.Logger
}

// Option customizes a Gate.
type Option func(*Gate)

func WithGenerator(g Generator) Option {
	return func(gate *Gate) { gate.generator = g }
}

func WithPolicy(p Policy) Option {
	return func(gate *Gate) { gate.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(gate *Gate) { gate.now = now }
}

// NewGate creates a gate bound to one form.
func NewGate(rs *rules.RuleSet, validator PhoneValidator, source FieldSource, slots ui.ErrorSlots, surface ui.Surface, logger services.Logger, opts ...Option) *Gate {
	g := &Gate{
		rules:     rs,
		validator: validator,
		source:    source,
		slots:     slots,
		surface:   surface,
		generator: RandomGenerator{},
		policy:    DefaultPolicy(),
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.policy.CodeLength < MinCodeLength {
		g.policy.CodeLength = MinCodeLength
	}
	return g
}

// RequestCode issues a fresh code for the current phone value. The phone must
// pass its field rules; otherwise the phone error is shown and no session is
// created. The returned session replaces any previous one, so older codes no
// longer verify. The code is returned for local display.
func (g *Gate) RequestCode() (*domain.OtpSession, string, error) {
	if res := g.validator.ValidateField(domain.FieldPhone); !res.Valid {
		g.logger.Warn("otp requested with invalid phone", "reason", res.Message)
		return nil, "", ErrPhoneInvalid
	}
	phone := g.source.Value(domain.FieldPhone)

	code, err := g.generator.Generate(g.policy.CodeLength)
	if err != nil {
		g.logger.Error("failed to generate otp", "error", err)
		return nil, "", fmt.Errorf("otp: generate code: %w", err)
	}
	if len(code) < MinCodeLength {
		return nil, "", fmt.Errorf("otp: generator returned %d characters, need at least %d", len(code), MinCodeLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		g.logger.Error("failed to hash otp", "error", err)
		return nil, "", fmt.Errorf("otp: hash code: %w", err)
	}

	now := g.now()
	session := &domain.OtpSession{
		CodeHash:       hash,
		CodeLength:     len(code),
		IssuedForPhone: phone,
		IssuedAt:       now,
	}
	if g.policy.TTL > 0 {
		session.ExpiresAt = now.Add(g.policy.TTL)
	}

	g.slots.SetError(domain.ErrorSlot(domain.FieldOTP), "")
	g.surface.ShowOTPSection()
	g.surface.SetSubmitVisible(false)
	g.surface.Notify(g.rules.Text(rules.MsgNoticeSuccessTitle), fmt.Sprintf(g.rules.Text(rules.MsgOtpSent), code))

	g.logger.Info("otp issued", "phone", services.MaskPhone(phone), "expires_at", session.ExpiresAt)
	return session, code, nil
}

// VerifyCode compares entered with the session's code by exact equality. A
// match marks the session verified and reveals the final submit control; any
// other outcome hides it and shows the OTP error. A verified session stays
// verified until the next RequestCode: a later mismatch only shows the error.
func (g *Gate) VerifyCode(session *domain.OtpSession, entered string) error {
	if session == nil {
		return g.reject(rules.MsgOtpNotRequested, ErrNoSession)
	}
	if session.Verified {
		if !matches(session, entered) {
			g.slots.SetError(domain.ErrorSlot(domain.FieldOTP), g.rules.Text(rules.MsgOtpMismatch))
			return ErrCodeMismatch
		}
		g.slots.SetError(domain.ErrorSlot(domain.FieldOTP), "")
		return nil
	}
	if session.Expired(g.now()) {
		return g.reject(rules.MsgOtpExpired, ErrCodeExpired)
	}
	if g.policy.MaxAttempts > 0 && session.Attempts >= g.policy.MaxAttempts {
		return g.reject(rules.MsgOtpTooManyAttempts, ErrTooManyAttempts)
	}

	if !matches(session, entered) {
		session.Attempts++
		g.logger.Warn("otp mismatch", "phone", services.MaskPhone(session.IssuedForPhone), "attempts", session.Attempts)
		return g.reject(rules.MsgOtpMismatch, ErrCodeMismatch)
	}

	session.Verified = true
	g.slots.SetError(domain.ErrorSlot(domain.FieldOTP), "")
	g.surface.SetSubmitVisible(true)
	g.logger.Info("otp verified", "phone", services.MaskPhone(session.IssuedForPhone))
	return nil
}

func (g *Gate) reject(msgKey string, err error) error {
	g.slots.SetError(domain.ErrorSlot(domain.FieldOTP), g.rules.Text(msgKey))
	g.surface.SetSubmitVisible(false)
	return err
}

// matches checks the length first so that bcrypt's input limit never turns a
// long mismatching entry into a match.
func matches(session *domain.OtpSession, entered string) bool {
	if len(entered) != session.CodeLength {
		return false
	}
	return bcrypt.CompareHashAndPassword(session.CodeHash, []byte(entered)) == nil
}
