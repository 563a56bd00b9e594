package cascade

import "slices"

// Coverage is the derived row-to-transaction index. It is recomputed on
// demand rather than maintained incrementally, so it can never go stale.
type Coverage struct {
	// Covered maps each covered row ordinal to the ids of the transactions
	// referencing it. Excluded rows appear with a nil id list.
	Covered map[int][]string
	// Uncovered lists row ordinals no transaction references, in order.
	Uncovered []int
	// OverCovered lists rows referenced by more than one transaction, a
	// grouping defect rather than a valid state.
	OverCovered map[int][]string
	// Percent is the fraction of rows covered or excluded, in [0,100].
	Percent float64
}

// ComputeCoverage indexes rows against transactions in O(rows + legs).
// Excluded rows count as covered for percentage purposes but reference no
// transaction.
func ComputeCoverage(rows []SourceRow, txns []*Transaction, excluded map[int]string) Coverage {
	cov := Coverage{
		Covered:     make(map[int][]string),
		OverCovered: make(map[int][]string),
	}

	byOrdinal := make(map[int][]string, len(rows))
	for _, t := range txns {
		for _, ord := range t.Rows {
			byOrdinal[ord] = append(byOrdinal[ord], t.ID)
		}
	}

	covered := 0
	for _, row := range rows {
		ids := byOrdinal[row.Ordinal]
		if _, isExcluded := excluded[row.Ordinal]; isExcluded {
			cov.Covered[row.Ordinal] = nil
			covered++
			continue
		}
		switch len(ids) {
		case 0:
			cov.Uncovered = append(cov.Uncovered, row.Ordinal)
		case 1:
			cov.Covered[row.Ordinal] = ids
			covered++
		default:
			cov.Covered[row.Ordinal] = ids
			cov.OverCovered[row.Ordinal] = ids
			covered++
		}
	}
	slices.Sort(cov.Uncovered)
	if len(rows) > 0 {
		cov.Percent = 100 * float64(covered) / float64(len(rows))
	} else {
		cov.Percent = 100
	}
	return cov
}

// UncoveredRuns groups consecutive uncovered ordinals, used to scope
// suspected-missing-transaction discrepancies.
func (c Coverage) UncoveredRuns() [][]int {
	var runs [][]int
	for _, ord := range c.Uncovered {
		if n := len(runs); n > 0 && runs[n-1][len(runs[n-1])-1] == ord-1 {
			runs[n-1] = append(runs[n-1], ord)
			continue
		}
		runs = append(runs, []int{ord})
	}
	return runs
}
