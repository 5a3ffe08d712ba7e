// File: internal/domain/loan.go
package domain

// LoanQuote is the input of the monthly payment calculator.
type LoanQuote struct {
	Amount            float64 `json:"amount"`
	TermMonths        int     `json:"term_months"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
}

// PaymentResult is derived from a LoanQuote. Monetary values are rounded to two decimals.
type PaymentResult struct {
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalPayment   float64 `json:"total_payment"`
	TotalInterest  float64 `json:"total_interest"`
	Currency       string  `json:"currency"`
	Display        string  `json:"display"`
}
