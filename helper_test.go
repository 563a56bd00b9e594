package cascade

import (
	"testing"

	"github.com/rs/zerolog"
)

// testLogger discards all output; engine tests assert on state, not logs.
func testLogger() zerolog.Logger { return zerolog.Nop() }

// primaryRow builds a standardized primary row for tests.
func primaryRow(ordinal int, day, action, symbol string, qty, amount float64) SourceRow {
	row := SourceRow{
		Ordinal:     ordinal,
		FileOrdinal: ordinal,
		Date:        MustParseDate(day),
		Action:      action,
		Symbol:      symbol,
		Amount:      M(amount, "USD"),
	}
	if qty != 0 {
		row.Quantity = Q(qty)
	}
	return row
}

// settlementRow builds a balance-only settlement row.
func settlementRow(ordinal int, day string, balance float64) SourceRow {
	return SourceRow{
		Ordinal:     ordinal,
		FileOrdinal: ordinal,
		Date:        MustParseDate(day),
		Balance:     M(balance, "USD"),
		HasBalance:  true,
	}
}

// testBuilder builds transactions against a fresh registry and defaults.
func testBuilder() *Builder {
	return NewBuilder(NewAssetRegistry(), DefaultAccountConfig(), testLogger())
}

// mustBuild builds every unit sequentially and fails the test on any error.
func mustBuild(t *testing.T, b *Builder, units []TransactionUnit) []*Transaction {
	t.Helper()
	var txns []*Transaction
	for _, u := range units {
		txn, err := b.Build(u)
		if err != nil {
			t.Fatalf("build failed for unit starting at row %d: %v", u.Rows[0].Ordinal, err)
		}
		txns = append(txns, txn)
	}
	return txns
}
