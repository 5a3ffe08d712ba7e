// File: internal/services/loancalc/calculator.go
package loancalc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iyunix/go-loanform/internal/domain"
)

// Defaults used by the loan form.
const (
	DefaultCurrency = "VNĐ"
	DefaultLabel    = "Thanh toán hàng tháng:"

	// DefaultAnnualRatePercent pre-fills the calculator's rate input.
	DefaultAnnualRatePercent = 11.0
)

// ErrInvalidQuote is returned for non-positive amounts or terms and negative rates.
var ErrInvalidQuote = errors.New("loancalc: invalid loan quote")

// Calculator computes annuity payments and formats them for display.
type Calculator struct {
	Currency string
	Label    string
}

// New returns a calculator with the given currency suffix and display label.
// Empty values fall back to the defaults.
func New(currency, label string) Calculator {
	if currency == "" {
		currency = DefaultCurrency
	}
	if label == "" {
		label = DefaultLabel
	}
	return Calculator{Currency: currency, Label: label}
}

// ComputeMonthlyPayment converts a quote into a fixed monthly payment.
// A zero rate spreads the amount evenly; otherwise the annuity formula
// amount * r * (1+r)^n / ((1+r)^n - 1) applies with r the monthly rate.
func (c Calculator) ComputeMonthlyPayment(amount float64, termMonths int, annualRatePercent float64) (domain.PaymentResult, error) {
	return c.Compute(domain.LoanQuote{Amount: amount, TermMonths: termMonths, AnnualRatePercent: annualRatePercent})
}

// Compute is ComputeMonthlyPayment for a LoanQuote value.
func (c Calculator) Compute(q domain.LoanQuote) (domain.PaymentResult, error) {
	if err := validate(q); err != nil {
		return domain.PaymentResult{}, err
	}

	payment := monthlyPayment(q)
	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return domain.PaymentResult{}, fmt.Errorf("%w: payment is not representable", ErrInvalidQuote)
	}

	monthly := round2(payment)
	total := round2(payment * float64(q.TermMonths))
	return domain.PaymentResult{
		MonthlyPayment: monthly,
		TotalPayment:   total,
		TotalInterest:  round2(total - q.Amount),
		Currency:       c.currency(),
		Display:        fmt.Sprintf("%s %.2f %s", c.label(), monthly, c.currency()),
	}, nil
}

func (c Calculator) currency() string {
	if c.Currency == "" {
		return DefaultCurrency
	}
	return c.Currency
}

func (c Calculator) label() string {
	if c.Label == "" {
		return DefaultLabel
	}
	return c.Label
}

func validate(q domain.LoanQuote) error {
	switch {
	case math.IsNaN(q.Amount) || math.IsInf(q.Amount, 0) || q.Amount <= 0:
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidQuote)
	case q.TermMonths <= 0:
		return fmt.Errorf("%w: term must be at least one month", ErrInvalidQuote)
	case math.IsNaN(q.AnnualRatePercent) || math.IsInf(q.AnnualRatePercent, 0) || q.AnnualRatePercent < 0:
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidQuote)
	}
	return nil
}

func monthlyPayment(q domain.LoanQuote) float64 {
	r := q.AnnualRatePercent / 100 / 12
	n := float64(q.TermMonths)
	if r == 0 {
		return q.Amount / n
	}
	growth := math.Pow(1+r, n)
	return q.Amount * r * growth / (growth - 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseQuote reads the calculator's raw text inputs. The term must be a whole
// number of months.
func ParseQuote(amount, termMonths, annualRatePercent string) (domain.LoanQuote, error) {
	a, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return domain.LoanQuote{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidQuote, amount)
	}
	n, err := strconv.Atoi(strings.TrimSpace(termMonths))
	if err != nil {
		return domain.LoanQuote{}, fmt.Errorf("%w: term %q is not a whole number", ErrInvalidQuote, termMonths)
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(annualRatePercent), 64)
	if err != nil {
		return domain.LoanQuote{}, fmt.Errorf("%w: rate %q is not a number", ErrInvalidQuote, annualRatePercent)
	}
	q := domain.LoanQuote{Amount: a, TermMonths: n, AnnualRatePercent: r}
	if err := validate(q); err != nil {
		return domain.LoanQuote{}, err
	}
	return q, nil
}
