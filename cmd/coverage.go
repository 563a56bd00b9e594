package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
	"github.com/dalenavi/cascade-ledger-sub003/renderer"
)

type coverageCmd struct{}

func (*coverageCmd) Name() string     { return "coverage" }
func (*coverageCmd) Synopsis() string { return "report which source rows the ledger explains" }
func (*coverageCmd) Usage() string {
	return `cale coverage <export.csv> [<export.csv>...]

  Indexes the source rows against the ledger's transactions and reports
  uncovered and over-covered rows. Fully reconciled books cover every row
  exactly once.
`
}

func (c *coverageCmd) SetFlags(f *flag.FlagSet) {}

func (c *coverageCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	ledger, err := loadLedger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	rows, err := loadAllRows(f.Args(), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	cov := cascade.ComputeCoverage(rows, ledger.Transactions(), ledger.Excluded())
	printMarkdown(renderer.CoverageMarkdown(rows, &cov))
	return subcommands.ExitSuccess
}
