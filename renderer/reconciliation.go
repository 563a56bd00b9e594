package renderer

import (
	"fmt"
	"strings"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
)

// ReconciliationMarkdown renders the outcome of a reconciliation run.
func ReconciliationMarkdown(summary *cascade.ReconcileSummary) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Reconciliation Report\n\n")

	status := "NOT RECONCILED"
	if summary.FullyReconciled {
		status = "FULLY RECONCILED"
	}
	fmt.Fprintln(&b, "| | |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| **Status** | %s |\n", status)
	fmt.Fprintf(&b, "| Rounds | %d |\n", summary.Rounds)
	fmt.Fprintf(&b, "| Fixes applied | %d |\n", summary.FixesApplied)
	fmt.Fprintf(&b, "| Max discrepancy before | %s |\n", summary.InitialMax.SignedString())
	fmt.Fprintf(&b, "| Max discrepancy after | %s |\n", summary.FinalMax.SignedString())
	fmt.Fprintln(&b)

	if len(summary.Unresolved) > 0 {
		fmt.Fprint(&b, "## Unresolved Discrepancies\n\n")
		fmt.Fprintln(&b, "| Kind | Window | Amount | Severity | Detail |")
		fmt.Fprintln(&b, "|:---|:---|---:|:---|:---|")
		for _, d := range summary.Unresolved {
			fmt.Fprintf(&b, "| %s | %s to %s | %s | %s | %s |\n",
				d.Kind, d.From, d.To, d.Amount.SignedString(), d.Severity, d.Detail)
		}
		fmt.Fprintln(&b)
	}

	if len(summary.Held) > 0 {
		fmt.Fprint(&b, "## Fixes Held for Approval\n\n")
		fmt.Fprintln(&b, "| Confidence | Description | Edits |")
		fmt.Fprintln(&b, "|---:|:---|---:|")
		for _, f := range summary.Held {
			fmt.Fprintf(&b, "| %.2f | %s | %d |\n", f.Confidence, f.Description, len(f.Deltas))
		}
		fmt.Fprintln(&b)
	}

	if len(summary.Investigations) > 0 {
		fmt.Fprint(&b, "## Investigations\n\n")
		for _, inv := range summary.Investigations {
			fmt.Fprintf(&b, "### %s\n\n", inv.ID)
			fmt.Fprintf(&b, "%s\n\n", inv.Hypothesis)
			if inv.Evidence != "" {
				fmt.Fprintf(&b, "Evidence: %s\n\n", inv.Evidence)
			}
			for i, f := range inv.Fixes {
				marker := " "
				if i == inv.AppliedFix {
					marker = "applied"
				}
				fmt.Fprintf(&b, "- [%.2f] %s %s\n", f.Confidence, f.Description, marker)
			}
			fmt.Fprintln(&b)
		}
	}

	return b.String()
}

// CheckpointsMarkdown renders the running-balance checkpoint series.
func CheckpointsMarkdown(checkpoints []cascade.BalanceCheckpoint) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Balance Checkpoints\n\n")
	if len(checkpoints) == 0 {
		fmt.Fprint(&b, "No rows carry a ground-truth balance.\n")
		return b.String()
	}

	fmt.Fprintln(&b, "| Date | Row | Stated | Computed | Discrepancy | Severity |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|:---|")
	for _, cp := range checkpoints {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
			cp.Date, cp.Ordinal,
			cp.GroundTruth.SignedString(), cp.Computed.SignedString(),
			cp.Discrepancy.SignedString(), cp.Severity)
	}
	return b.String()
}
