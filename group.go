package cascade

// TransactionUnit is an ordered set of source rows forming one economic
// event: one primary row plus zero or more settlement rows. Units are
// transient; they exist only between grouping and building.
type TransactionUnit struct {
	Rows   []SourceRow
	Orphan bool // settlement row(s) with no preceding primary
}

// Primary returns the unit's primary row. It is always the first row for a
// non-orphan unit.
func (u TransactionUnit) Primary() (SourceRow, bool) {
	if u.Orphan || len(u.Rows) == 0 {
		return SourceRow{}, false
	}
	return u.Rows[0], true
}

// Ordinals returns the ordinals of all rows in the unit.
func (u TransactionUnit) Ordinals() []int {
	ords := make([]int, len(u.Rows))
	for i, r := range u.Rows {
		ords[i] = r.Ordinal
	}
	return ords
}

// SettlementPolicy classifies rows as primary or settlement under one
// institution's export convention. Policies are swappable per institution.
type SettlementPolicy interface {
	// IsSettlement reports whether the row is a balance-only settlement row.
	IsSettlement(row SourceRow) bool
}

// DualRowPolicy implements the common dual-row convention: a settlement row
// carries no action, no symbol and no quantity, and attaches to the unit of
// the immediately preceding primary row.
type DualRowPolicy struct{}

func (DualRowPolicy) IsSettlement(row SourceRow) bool {
	return row.Action == "" && row.Symbol == "" && row.Quantity.IsZero()
}

// NoSettlementPolicy treats every row as its own primary.
type NoSettlementPolicy struct{}

func (NoSettlementPolicy) IsSettlement(SourceRow) bool { return false }

// PolicyFor returns the settlement policy registered under a name.
// Unknown names fall back to the dual-row policy.
func PolicyFor(name string) SettlementPolicy {
	if name == "none" {
		return NoSettlementPolicy{}
	}
	return DualRowPolicy{}
}

// Group partitions an ordered row sequence into transaction units under a
// policy. Every input row lands in exactly one unit: a settlement row joins
// the preceding primary's unit, and a settlement row with no preceding
// primary becomes its own flagged orphan unit rather than being dropped.
func Group(rows []SourceRow, policy SettlementPolicy) []TransactionUnit {
	var units []TransactionUnit
	for _, row := range rows {
		if policy.IsSettlement(row) {
			if n := len(units); n > 0 && !units[n-1].Orphan {
				units[n-1].Rows = append(units[n-1].Rows, row)
				continue
			}
			units = append(units, TransactionUnit{Rows: []SourceRow{row}, Orphan: true})
			continue
		}
		units = append(units, TransactionUnit{Rows: []SourceRow{row}})
	}
	return units
}
