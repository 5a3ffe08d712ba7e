// File: internal/dtos/form.go
package dtos

import (
	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/services/form"
)

// FieldUpdateRequestDTO is one input event.
type FieldUpdateRequestDTO struct {
	Value string `json:"value"`
}

// FieldResultDTO reports the live validation outcome of one field.
type FieldResultDTO struct {
	Field   string `json:"field"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// OTPRequestResponseDTO is returned after a code was issued. The code is
// echoed for on-page display, as no SMS gateway is involved.
type OTPRequestResponseDTO struct {
	Code       string `json:"code"`
	CodeLength int    `json:"code_length"`
}

// OTPVerifyRequestDTO carries the code the user typed.
type OTPVerifyRequestDTO struct {
	Code string `json:"code"`
}

// SubmitRequestDTO carries the anti-automation widget's response.
type SubmitRequestDTO struct {
	ChallengeToken string `json:"challenge_token"`
}

// CalculatorRequestDTO mirrors the calculator's three text inputs.
type CalculatorRequestDTO struct {
	Amount            string `json:"amount"`
	TermMonths        string `json:"term_months"`
	AnnualRatePercent string `json:"annual_rate_percent"`
}

// CalculatorResponseDTO is a computed payment.
type CalculatorResponseDTO struct {
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalPayment   float64 `json:"total_payment"`
	TotalInterest  float64 `json:"total_interest"`
	Currency       string  `json:"currency"`
	Display        string  `json:"display"`
}

// FormResponseDTO wraps the form snapshot with the outcome of the last event.
type FormResponseDTO struct {
	Form       form.Snapshot           `json:"form"`
	Validation domain.ValidationResult `json:"validation,omitempty"`
	OTP        *OTPRequestResponseDTO  `json:"otp,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

func ToFieldResultDTO(name string, res domain.FieldResult) FieldResultDTO {
	return FieldResultDTO{Field: name, Valid: res.Valid, Message: res.Message}
}

func ToCalculatorResponseDTO(res domain.PaymentResult) CalculatorResponseDTO {
	return CalculatorResponseDTO{
		MonthlyPayment: res.MonthlyPayment,
		TotalPayment:   res.TotalPayment,
		TotalInterest:  res.TotalInterest,
		Currency:       res.Currency,
		Display:        res.Display,
	}
}
