package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
)

type fmtCmd struct{}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `cale fmt

  Reads the ledger file, validates every transaction, sorts them into
  display order and writes the file back in canonical JSONL form.
`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {}

func (c *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	ledger, err := loadLedger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	invalid := 0
	for _, t := range ledger.Transactions() {
		if err := t.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: transaction %s is not balanced: %v\n", t.ID, err)
			invalid++
		}
	}

	if err := cascade.SaveLedger(*ledgerFile, ledger); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	if invalid > 0 {
		fmt.Fprintf(os.Stderr, "Formatted %s with %d invalid transactions left in place.\n", *ledgerFile, invalid)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Successfully formatted %s.\n", *ledgerFile)
	return subcommands.ExitSuccess
}
