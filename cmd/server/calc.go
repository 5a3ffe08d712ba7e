// File: cmd/server/calc.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-loanform/internal/services/loancalc"
)

var (
	calcAmount   string
	calcTerm     string
	calcRate     string
	calcCurrency string
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute a monthly payment",
	Long: `Compute the fixed monthly payment of an amortizing loan.

Example:
  loanform calc --amount 10000000 --term 12 --rate 11`,
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().StringVar(&calcAmount, "amount", "", "loan amount")
	calcCmd.Flags().StringVar(&calcTerm, "term", "", "term in months")
	calcCmd.Flags().StringVar(&calcRate, "rate", fmt.Sprint(loancalc.DefaultAnnualRatePercent), "annual interest rate in percent")
	calcCmd.Flags().StringVar(&calcCurrency, "currency", loancalc.DefaultCurrency, "currency suffix")
	_ = calcCmd.MarkFlagRequired("amount")
	_ = calcCmd.MarkFlagRequired("term")
}

func runCalc(cmd *cobra.Command, args []string) error {
	q, err := loancalc.ParseQuote(calcAmount, calcTerm, calcRate)
	if err != nil {
		return err
	}
	res, err := loancalc.New(calcCurrency, "").Compute(q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Display)
	fmt.Fprintf(out, "Tổng thanh toán: %.2f %s\n", res.TotalPayment, res.Currency)
	fmt.Fprintf(out, "Tổng tiền lãi: %.2f %s\n", res.TotalInterest, res.Currency)
	return nil
}
