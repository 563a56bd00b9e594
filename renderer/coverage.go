// Package renderer turns reconciliation data structures into markdown
// reports suitable for terminal display.
package renderer

import (
	"fmt"
	"strings"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
)

// CoverageMarkdown renders the row coverage index as a markdown report.
func CoverageMarkdown(rows []cascade.SourceRow, cov *cascade.Coverage) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Coverage Report\n\n")
	fmt.Fprintf(&b, "Covered: %d of %d rows (%.1f%%)\n\n", len(cov.Covered), len(rows), cov.Percent)

	if len(cov.Uncovered) > 0 {
		fmt.Fprint(&b, "## Uncovered Rows\n\n")
		fmt.Fprintln(&b, "| Rows | Date | Action | Amount |")
		fmt.Fprintln(&b, "|:---|:---|:---|---:|")
		byOrdinal := make(map[int]cascade.SourceRow, len(rows))
		for _, r := range rows {
			byOrdinal[r.Ordinal] = r
		}
		for _, run := range cov.UncoveredRuns() {
			first := byOrdinal[run[0]]
			label := fmt.Sprintf("%d", run[0])
			if len(run) > 1 {
				label = fmt.Sprintf("%d-%d", run[0], run[len(run)-1])
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", label, first.Date, first.Action, first.Amount.SignedString())
		}
		fmt.Fprintln(&b)
	}

	if len(cov.OverCovered) > 0 {
		fmt.Fprint(&b, "## Over-Covered Rows\n\n")
		fmt.Fprintln(&b, "| Row | Transactions |")
		fmt.Fprintln(&b, "|:---|:---|")
		for _, ordinal := range sortedKeys(cov.OverCovered) {
			fmt.Fprintf(&b, "| %d | %s |\n", ordinal, strings.Join(cov.OverCovered[ordinal], ", "))
		}
		fmt.Fprintln(&b)
	}

	if len(cov.Uncovered) == 0 && len(cov.OverCovered) == 0 {
		fmt.Fprint(&b, "Every row is explained by exactly one transaction.\n")
	}

	return b.String()
}
