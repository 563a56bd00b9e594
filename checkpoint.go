package cascade

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Severity buckets a discrepancy magnitude and drives whether a mismatch may
// be auto-corrected.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var (
	severityLow      = decimal.RequireFromString("0.01")
	severityMedium   = decimal.NewFromInt(10)
	severityHigh     = decimal.NewFromInt(100)
	severityCritical = decimal.NewFromInt(1000)
)

// SeverityFor buckets a signed discrepancy amount by magnitude.
func SeverityFor(discrepancy Money) Severity {
	abs := discrepancy.Decimal().Abs()
	switch {
	case abs.GreaterThan(severityCritical):
		return SeverityCritical
	case abs.GreaterThan(severityHigh):
		return SeverityHigh
	case abs.GreaterThan(severityMedium):
		return SeverityMedium
	case abs.GreaterThan(severityLow):
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Exceeds reports whether s is at least other on the severity scale.
func (s Severity) Exceeds(other Severity) bool {
	rank := map[Severity]int{
		SeverityNone: 0, SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4,
	}
	return rank[s] >= rank[other]
}

// BalanceCheckpoint pairs one ground-truth balance reading from the source
// data with the ledger's running balance at the same point. The running
// balance field in the export is the reconciliation engine's only independent
// oracle of truth.
type BalanceCheckpoint struct {
	Ordinal     int      `json:"ordinal"` // row carrying the reading
	Date        Date     `json:"date"`
	GroundTruth Money    `json:"groundTruth"`
	Computed    Money    `json:"computed"`
	Discrepancy Money    `json:"discrepancy"` // ground truth minus computed
	Severity    Severity `json:"severity"`
}

// BuildCheckpoints computes a checkpoint for every row carrying a non-empty
// ground-truth balance. The computed running balance at a row is the signed
// sum of cash-classified legs (plus balance-instrument legs) over all
// transactions dated on or before that row, under the account's date basis.
//
// The fold is strictly sequential in time: transactions are ordered by date
// then minimum contributing row ordinal, and the cumulative sums are shared
// across checkpoints so the whole pass is O(txns + balance rows).
func BuildCheckpoints(rows []SourceRow, txns []*Transaction, cfg AccountConfig) []BalanceCheckpoint {
	cfg = cfg.withDefaults()

	ordered := make([]*Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].EffectiveDate(cfg.DateBasis), ordered[j].EffectiveDate(cfg.DateBasis)
		if a != b {
			return a.Before(b)
		}
		return ordered[i].MinRowOrdinal() < ordered[j].MinRowOrdinal()
	})

	// Prefix sums of the running balance after each transaction.
	prefix := make([]Money, len(ordered))
	var sum Money
	for i, t := range ordered {
		sum = sum.Add(t.CashEffect(cfg.BalanceInstrument))
		prefix[i] = sum
	}

	// runningAt returns the balance including every transaction dated on or
	// before the given day.
	runningAt := func(day Date) Money {
		idx := sort.Search(len(ordered), func(i int) bool {
			return ordered[i].EffectiveDate(cfg.DateBasis).After(day)
		})
		if idx == 0 {
			return M(0, cfg.Currency)
		}
		return prefix[idx-1]
	}

	// txnByRow backfills the reconciliation snapshot onto the transaction
	// covering each checkpoint row.
	txnByRow := make(map[int]*Transaction)
	for _, t := range txns {
		for _, ord := range t.Rows {
			txnByRow[ord] = t
		}
	}

	var checkpoints []BalanceCheckpoint
	for _, row := range rows {
		if !row.HasBalance {
			continue
		}
		computed := runningAt(row.Date)
		discrepancy := row.Balance.Sub(computed)
		checkpoints = append(checkpoints, BalanceCheckpoint{
			Ordinal:     row.Ordinal,
			Date:        row.Date,
			GroundTruth: row.Balance,
			Computed:    computed,
			Discrepancy: discrepancy,
			Severity:    SeverityFor(discrepancy),
		})
		if t, ok := txnByRow[row.Ordinal]; ok {
			t.GroundTruth = row.Balance
			t.HasGroundTruth = true
			t.Computed = computed
			t.Discrepancy = discrepancy
		}
	}
	return checkpoints
}

// MaxDiscrepancy returns the largest absolute checkpoint discrepancy.
func MaxDiscrepancy(checkpoints []BalanceCheckpoint) Money {
	var max Money
	for _, cp := range checkpoints {
		if cp.Discrepancy.Decimal().Abs().GreaterThan(max.Decimal().Abs()) {
			max = cp.Discrepancy
		}
	}
	return max
}
