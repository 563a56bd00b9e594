// Package cmd implements the CLI application to reconcile a personal ledger.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
	"github.com/dalenavi/cascade-ledger-sub003/logger"
)

// Register the subcommands.
// A main package calls Register() to wire the commands, then Execute() on the
// user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "ledger")
	c.Register(&txCmd{}, "ledger")
	c.Register(&fmtCmd{}, "ledger")

	c.Register(&coverageCmd{}, "reconciliation")
	c.Register(&balancesCmd{}, "reconciliation")
	c.Register(&reconcileCmd{}, "reconciliation")

	c.Register(&topicCmd{}, "documentation")
}

// as a CLI application it has a very short lived lifecycle, so it is ok to
// use global variables for the shared flags.

var ledgerFile = flag.String("ledger-file", "ledger.jsonl", "Path to the ledger file (JSONL format)")
var accountConfig = flag.String("account-config", "", "Path to the account configuration file (JSON). Defaults apply when empty.")
var verbose = flag.Bool("v", false, "Enable verbose logging")

// appLogger builds the logger used by the engine, honoring -v.
func appLogger() zerolog.Logger {
	log := logger.New()
	if !*verbose {
		log = log.Level(zerolog.WarnLevel)
	}
	return log
}

// loadConfig reads the -account-config file, or returns defaults.
func loadConfig() (cascade.AccountConfig, error) {
	if *accountConfig == "" {
		return cascade.DefaultAccountConfig(), nil
	}
	return cascade.LoadAccountConfig(*accountConfig)
}

// loadLedger opens the -ledger-file ledger for the configured account. A
// missing file yields an empty ledger.
func loadLedger(cfg cascade.AccountConfig) (*cascade.Ledger, error) {
	return cascade.LoadLedger(*ledgerFile, cfg.Account)
}

// loadRows reads and maps the source rows from a CSV export. Batch ordinals
// continue from start.
func loadRows(path string, cfg cascade.AccountConfig, start int) ([]cascade.SourceRow, cascade.FieldMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cascade.FieldMapping{}, fmt.Errorf("could not open rows file %q: %w", path, err)
	}
	defer f.Close()
	return cascade.ReadRows(f, cfg, start)
}

// loadAllRows pools the rows of several exports into one batch with
// distinct ordinals.
func loadAllRows(paths []string, cfg cascade.AccountConfig) ([]cascade.SourceRow, error) {
	var rows []cascade.SourceRow
	for _, path := range paths {
		fileRows, _, err := loadRows(path, cfg, len(rows))
		if err != nil {
			return nil, fmt.Errorf("could not read %q: %w", path, err)
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

// ledgerSlice builds a throwaway ledger view over a subset of transactions,
// for head/tail style listings.
func ledgerSlice(account string, txns []*cascade.Transaction) *cascade.Ledger {
	view := cascade.NewLedger(account)
	view.Append(txns...)
	return view
}

// printMarkdown renders a markdown document to the terminal.
func printMarkdown(doc string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		fmt.Print(doc)
		return
	}
	out, err := r.Render(doc)
	if err != nil {
		fmt.Print(doc)
		return
	}
	fmt.Print(out)
}
