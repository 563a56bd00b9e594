package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/dalenavi/cascade-ledger-sub003/renderer"
)

type txCmd struct {
	head int
	tail int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list all transactions in the ledger" }
func (*txCmd) Usage() string {
	return `cale tx [-head <n>] [-tail <n>]

  Lists the ledger's transactions in display order, one journal table per
  transaction.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions.")
}

func (c *txCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.head > 0 && c.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
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

	view := ledger
	txns := ledger.Transactions()
	if c.head > 0 && c.head < len(txns) {
		view = ledgerSlice(ledger.Account(), txns[:c.head])
	} else if c.tail > 0 && c.tail < len(txns) {
		view = ledgerSlice(ledger.Account(), txns[len(txns)-c.tail:])
	}

	printMarkdown(renderer.TransactionsMarkdown(view))
	return subcommands.ExitSuccess
}
