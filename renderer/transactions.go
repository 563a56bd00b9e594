package renderer

import (
	"fmt"
	"strings"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
)

// TransactionsMarkdown renders the ledger's transactions in display order,
// one journal table per transaction.
func TransactionsMarkdown(ledger *cascade.Ledger) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Transactions for %s\n\n", ledger.Account())

	txns := ledger.Transactions()
	if len(txns) == 0 {
		fmt.Fprint(&b, "The ledger is empty.\n")
		return b.String()
	}

	for _, t := range txns {
		fmt.Fprintf(&b, "## %s %s %s\n\n", t.Date, t.Type, t.Description)
		fmt.Fprintln(&b, "| Account | Debit | Credit | Quantity |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|")
		for _, e := range t.Entries {
			qty := ""
			if !e.Quantity.IsZero() {
				qty = fmt.Sprintf("%s %s", e.Quantity, e.Unit)
			}
			debit, credit := "", ""
			if !e.Debit.IsZero() {
				debit = e.Debit.String()
			}
			if !e.Credit.IsZero() {
				credit = e.Credit.String()
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", e.Account, debit, credit, qty)
		}
		if t.HasGroundTruth {
			fmt.Fprintf(&b, "\nStated balance %s, computed %s.\n", t.GroundTruth, t.Computed)
		}
		fmt.Fprintln(&b)
	}

	return b.String()
}
