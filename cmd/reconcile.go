package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
	"github.com/dalenavi/cascade-ledger-sub003/oracle"
	"github.com/dalenavi/cascade-ledger-sub003/renderer"
)

type reconcileCmd struct {
	rounds      int
	autoApply   float64
	hold        float64
	contextDays int
	workers     int
	dryRun      bool
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "investigate and fix balance discrepancies" }
func (*reconcileCmd) Usage() string {
	return `cale reconcile <export.csv> [<export.csv>...]

  Runs the reconciliation loop: detect discrepancies between the ledger's
  computed running balance and the stated balances in the export, ask the
  investigation oracle about each one, and apply fixes whose confidence
  clears the auto-apply threshold. Requires GEMINI_API_KEY.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	defaults := cascade.DefaultReconcileOptions()
	f.IntVar(&c.rounds, "rounds", defaults.MaxRounds, "Maximum scan-investigate-fix rounds")
	f.Float64Var(&c.autoApply, "auto", defaults.AutoApply, "Confidence at or above which a fix is applied")
	f.Float64Var(&c.hold, "hold", defaults.Hold, "Confidence at or above which a fix is held for approval")
	f.IntVar(&c.contextDays, "context-days", defaults.ContextDays, "Days of context around a discrepancy sent to the oracle")
	f.IntVar(&c.workers, "workers", defaults.Workers, "Number of concurrent investigations")
	f.BoolVar(&c.dryRun, "n", false, "Report without saving the fixed ledger")
}

func (c *reconcileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	log := appLogger()
	gemini, err := oracle.NewGemini(ctx, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	opts := cascade.ReconcileOptions{
		MaxRounds:   c.rounds,
		AutoApply:   c.autoApply,
		Hold:        c.hold,
		ContextDays: c.contextDays,
		Workers:     c.workers,
	}
	reconciler := cascade.NewReconciler(ledger, rows, cfg, gemini, opts, log)

	summary, err := reconciler.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if !c.dryRun && summary.FixesApplied > 0 {
		if err := cascade.SaveLedger(*ledgerFile, ledger); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving ledger: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	printMarkdown(renderer.ReconciliationMarkdown(&summary))
	if !summary.FullyReconciled {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
