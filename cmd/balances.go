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

type balancesCmd struct{}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "check the computed running balance against stated readings" }
func (*balancesCmd) Usage() string {
	return `cale balances <export.csv> [<export.csv>...]

  Builds a checkpoint at every row carrying a stated running balance and
  compares it with the running balance computed from the ledger.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {}

func (c *balancesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	checkpoints := cascade.BuildCheckpoints(rows, ledger.Transactions(), cfg)
	printMarkdown(renderer.CheckpointsMarkdown(checkpoints))

	if max := cascade.MaxDiscrepancy(checkpoints); cascade.SeverityFor(max) != cascade.SeverityNone {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
