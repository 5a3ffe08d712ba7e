// File: internal/handlers/calculator_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/iyunix/go-loanform/internal/dtos"
	"github.com/iyunix/go-loanform/internal/services/loancalc"
)

// CalculatorHandler serves the standalone calculator, which needs no form session.
type CalculatorHandler struct {
	Calc loancalc.Calculator
}

func NewCalculatorHandler(calc loancalc.Calculator) *CalculatorHandler {
	return &CalculatorHandler{Calc: calc}
}

func (h *CalculatorHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req dtos.CalculatorRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.AnnualRatePercent) == "" {
		req.AnnualRatePercent = strconv.FormatFloat(loancalc.DefaultAnnualRatePercent, 'f', -1, 64)
	}

	q, err := loancalc.ParseQuote(req.Amount, req.TermMonths, req.AnnualRatePercent)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	res, err := h.Calc.Compute(q)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToCalculatorResponseDTO(res))
}
