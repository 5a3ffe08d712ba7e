// File: internal/domain/field.go
package domain

// FieldKind classifies how a form field is entered and checked.
type FieldKind string

const (
	KindText          FieldKind = "text"
	KindPhone         FieldKind = "phone"
	KindEmail         FieldKind = "email"
	KindIDNumber      FieldKind = "id-number"
	KindAmount        FieldKind = "amount"
	KindTerm          FieldKind = "term"
	KindChoice        FieldKind = "choice"
	KindFileReference FieldKind = "file-reference"
	KindOTP           FieldKind = "otp"
)

// IsValid reports whether k is one of the known kinds.
func (k FieldKind) IsValid() bool {
	switch k {
	case KindText, KindPhone, KindEmail, KindIDNumber, KindAmount, KindTerm, KindChoice, KindFileReference, KindOTP:
		return true
	}
	return false
}

// Names of the loan application fields. They double as input names on the page
// and as keys inside the stored draft.
const (
	FieldFullName   = "fullName"
	FieldPhone      = "phone"
	FieldEmail      = "email"
	FieldIDNumber   = "idNumber"
	FieldLoanAmount = "loanAmount"
	FieldLoanTerm   = "loanTerm"
	FieldLoanType   = "loanType"
	FieldIDPhoto    = "idPhoto"
	FieldATMPhoto   = "atmPhoto"
	FieldOTP        = "otp"
)

// SlotRecaptcha is the error slot of the anti-automation challenge.
const SlotRecaptcha = "recaptchaError"

// ErrorSlot returns the id of the element that shows a field's error text.
func ErrorSlot(field string) string {
	return field + "Error"
}

// Field is a single named input and its current raw value.
type Field struct {
	Name     string    `json:"name"`
	RawValue string    `json:"raw_value"`
	Kind     FieldKind `json:"kind"`
}

// FieldResult is the outcome of validating one field.
type FieldResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// ValidationResult maps a field name to the outcome of its last validation pass.
type ValidationResult map[string]FieldResult

// Valid reports whether every entry passed.
func (r ValidationResult) Valid() bool {
	for _, res := range r {
		if !res.Valid {
			return false
		}
	}
	return true
}

// Failed returns the names of the entries that did not pass.
func (r ValidationResult) Failed() []string {
	var names []string
	for name, res := range r {
		if !res.Valid {
			names = append(names, name)
		}
	}
	return names
}
