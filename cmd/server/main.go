// File: cmd/server/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loanform",
	Short: "Loan application form service",
	Long: `Serves the loan application form: field validation, phone verification
by one-time code, draft recovery and the monthly payment calculator.

Available subcommands:
  serve - Run the HTTP server
  calc  - Compute a monthly payment
  draft - Inspect or clear a client's stored draft`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, calcCmd, draftCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
