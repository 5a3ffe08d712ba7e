// File: cmd/server/draft.go
package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-loanform/internal/config"
	draftrepo "github.com/iyunix/go-loanform/internal/repository/draft"
	"github.com/iyunix/go-loanform/internal/services"
	"github.com/iyunix/go-loanform/internal/services/draft"
)

var (
	draftClient string
	draftJSON   bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Inspect or clear a client's stored draft",
	Long: `Inspect or clear the draft a client's form mirrors into storage.

Available subcommands:
  show  - Print the stored draft
  clear - Delete the stored draft`,
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored draft",
	RunE:  runDraftShow,
}

var draftClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored draft",
	RunE:  runDraftClear,
}

func init() {
	draftCmd.PersistentFlags().StringVar(&draftClient, "client", "", "client id (from the form session)")
	_ = draftCmd.MarkPersistentFlagRequired("client")
	draftShowCmd.Flags().BoolVar(&draftJSON, "json", false, "print as JSON")
	draftCmd.AddCommand(draftShowCmd, draftClearCmd)
}

func openDraft() (*draft.Persistence, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rs, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}
	repo, err := openDB(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	return draft.NewPersistence(draftrepo.ForOwner(repo, draftClient), rs, cfg.DraftKey, &services.NoOpLogger{}), nil
}

func runDraftShow(cmd *cobra.Command, args []string) error {
	p, err := openDraft()
	if err != nil {
		return err
	}
	record, err := p.LoadDraft(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if draftJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}
	if len(record) == 0 {
		fmt.Fprintln(out, "no draft stored")
		return nil
	}
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%-12s %s\n", name, record[name])
	}
	return nil
}

func runDraftClear(cmd *cobra.Command, args []string) error {
	p, err := openDraft()
	if err != nil {
		return err
	}
	if err := p.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "draft cleared for client %s\n", draftClient)
	return nil
}
