// File: internal/services/validation/validator.go
package validation

import (
	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/rules"
	"github.com/iyunix/go-loanform/internal/services"
	"github.com/iyunix/go-loanform/internal/ui"
)

// FieldSource reads the current raw value of a named input. File inputs
// report the chosen file name, or empty when nothing was chosen.
type FieldSource interface {
	Value(name string) string
}

// Checks carries the submit-time conditions that live outside the field rules.
type Checks struct {
	OTPVerified     bool
	ChallengePassed bool
}

// Validator evaluates a rule set against a form and writes the outcome into
// the form's error slots.
type Validator struct {
	rules  *rules.RuleSet
	source FieldSource
	slots  ui.ErrorSlots
	logger services.Logger
}

// NewValidator creates a new validator bound to one form.
func NewValidator(rs *rules.RuleSet, source FieldSource, slots ui.ErrorSlots, logger services.Logger) *Validator {
	return &Validator{
		rules:  rs,
		source: source,
		slots:  slots,
		logger: logger,
	}
}

// ValidateField applies every rule of the field in declaration order. The first
// failure decides the message; success clears the slot. Undeclared fields pass.
func (v *Validator) ValidateField(name string) domain.FieldResult {
	res := v.evaluate(name)
	v.slots.SetError(domain.ErrorSlot(name), res.Message)
	return res
}

func (v *Validator) evaluate(name string) domain.FieldResult {
	value := v.source.Value(name)
	for _, rule := range v.rules.RulesFor(name) {
		if kind, ok := rule.Check(value); !ok {
			return domain.FieldResult{Valid: false, Message: v.rules.MessageFor(name, kind)}
		}
	}
	return domain.FieldResult{Valid: true}
}

// ValidateFields validates every declared field and reports each outcome.
func (v *Validator) ValidateFields() domain.ValidationResult {
	result := make(domain.ValidationResult)
	for _, spec := range v.rules.Fields() {
		result[spec.Name] = v.ValidateField(spec.Name)
	}
	return result
}

// ValidateAll validates every field plus the OTP verification status and the
// anti-automation challenge. Submission may proceed only when the result is valid.
func (v *Validator) ValidateAll(checks Checks) domain.ValidationResult {
	result := v.ValidateFields()

	if otp, declared := result[domain.FieldOTP]; declared && otp.Valid && !checks.OTPVerified {
		msg := v.rules.Text(rules.MsgOtpUnverified)
		v.slots.SetError(domain.ErrorSlot(domain.FieldOTP), msg)
		result[domain.FieldOTP] = domain.FieldResult{Valid: false, Message: msg}
	}

	if checks.ChallengePassed {
		v.slots.SetError(domain.SlotRecaptcha, "")
		result[domain.SlotRecaptcha] = domain.FieldResult{Valid: true}
	} else {
		msg := v.rules.Text(rules.MsgRecaptcha)
		v.slots.SetError(domain.SlotRecaptcha, msg)
		result[domain.SlotRecaptcha] = domain.FieldResult{Valid: false, Message: msg}
	}

	if !result.Valid() {
		v.logger.Debug("form validation failed", "fields", result.Failed())
	}
	return result
}
