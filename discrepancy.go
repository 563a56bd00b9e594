package cascade

import (
	"fmt"

	"github.com/google/uuid"
)

// DiscrepancyKind classifies a detected problem.
type DiscrepancyKind string

const (
	BalanceMismatch       DiscrepancyKind = "balance-mismatch"
	UnbalancedTransaction DiscrepancyKind = "unbalanced-transaction"
	MissingTransaction    DiscrepancyKind = "missing-transaction"
	IncorrectAmount       DiscrepancyKind = "incorrect-amount"
)

// Discrepancy is one detected problem with its scope: the date range, the
// rows and the transactions it touches.
type Discrepancy struct {
	ID           string          `json:"id"`
	Kind         DiscrepancyKind `json:"kind"`
	From         Date            `json:"from"`
	To           Date            `json:"to"`
	Rows         []int           `json:"rows,omitempty"`
	Transactions []string        `json:"transactions,omitempty"`
	Amount       Money           `json:"amount"` // signed, ground truth minus computed
	Severity     Severity        `json:"severity"`
	Detail       string          `json:"detail"`
	Resolved     bool            `json:"resolved"`
}

// DetectDiscrepancies scans checkpoints, transactions and coverage for
// problems worth investigating. Checkpoint mismatches below the low severity
// threshold are floating-point noise and not reported.
func DetectDiscrepancies(rows []SourceRow, txns []*Transaction, checkpoints []BalanceCheckpoint, cov Coverage) []Discrepancy {
	var found []Discrepancy

	for _, cp := range checkpoints {
		if cp.Severity == SeverityNone {
			continue
		}
		found = append(found, Discrepancy{
			ID:       uuid.NewString(),
			Kind:     BalanceMismatch,
			From:     cp.Date,
			To:       cp.Date,
			Rows:     []int{cp.Ordinal},
			Amount:   cp.Discrepancy,
			Severity: cp.Severity,
			Detail: fmt.Sprintf("ground truth %s vs computed %s at row %d",
				cp.GroundTruth, cp.Computed, cp.Ordinal),
		})
	}

	// Persisted transactions failing validation should not exist; surface
	// them rather than trusting their legs.
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			found = append(found, Discrepancy{
				ID:           uuid.NewString(),
				Kind:         UnbalancedTransaction,
				From:         t.Date,
				To:           t.Date,
				Rows:         t.Rows,
				Transactions: []string{t.ID},
				Amount:       t.Imbalance(),
				Severity:     SeverityFor(t.Imbalance()),
				Detail:       err.Error(),
			})
		}
	}

	byOrdinal := make(map[int]SourceRow, len(rows))
	for _, r := range rows {
		byOrdinal[r.Ordinal] = r
	}
	for _, run := range cov.UncoveredRuns() {
		first, last := byOrdinal[run[0]], byOrdinal[run[len(run)-1]]
		var amount Money
		for _, ord := range run {
			amount = amount.Add(byOrdinal[ord].Amount)
		}
		found = append(found, Discrepancy{
			ID:       uuid.NewString(),
			Kind:     MissingTransaction,
			From:     first.Date,
			To:       last.Date,
			Rows:     run,
			Amount:   amount,
			Severity: SeverityFor(amount),
			Detail:   fmt.Sprintf("%d uncovered row(s) starting at ordinal %d", len(run), run[0]),
		})
	}

	return found
}
