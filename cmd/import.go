package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
)

type importCmd struct {
	workers int
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "build transactions from a CSV export" }
func (*importCmd) Usage() string {
	return `cale import <export.csv> [<export.csv>...]

  Reads institution CSV exports, groups settlement rows with their trades,
  builds balanced double-entry transactions through the rule table and
  appends them to the ledger. Units the rule table cannot book are reported
  and left uncovered rather than guessed at.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.workers, "workers", 4, "Number of concurrent transaction builders")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	registry := cascade.NewAssetRegistry()
	ledger.RebuildRegistry(registry)
	builder := cascade.NewBuilder(registry, cfg, appLogger())

	built, failed, total := 0, 0, 0
	for _, path := range f.Args() {
		rows, mapping, err := loadRows(path, cfg, total)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", path, err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "Read %d rows from %q (date column %q, action column %q)\n", len(rows), path, mapping.Date, mapping.Action)
		total += len(rows)

		units := cascade.Group(rows, cascade.PolicyFor(cfg.SettlementPolicy))
		txns, errs := builder.BuildAll(ctx, units, c.workers)

		ledger.Append(txns...)
		built += len(txns)
		failed += len(errs)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  skipped: %v\n", e)
		}
	}

	if err := cascade.SaveLedger(*ledgerFile, ledger); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Built %d transactions (%d units skipped), ledger saved to %s\n", built, failed, *ledgerFile)
	return subcommands.ExitSuccess
}
