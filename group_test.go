package cascade

import (
	"reflect"
	"testing"
)

func TestGroupDualRow(t *testing.T) {
	rows := []SourceRow{
		primaryRow(0, "2025-01-02", "YOU BOUGHT", "SPY", 4, -2019.24),
		settlementRow(1, "2025-01-06", 46175.80),
		primaryRow(2, "2025-01-07", "ELECTRONIC FUNDS TRANSFER RECEIVED", "", 0, 52264.00),
	}

	units := Group(rows, DualRowPolicy{})
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if got := units[0].Ordinals(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("first unit covers %v, want [0 1]", got)
	}
	if got := units[1].Ordinals(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("second unit covers %v, want [2]", got)
	}
	if units[0].Orphan || units[1].Orphan {
		t.Error("no unit should be an orphan")
	}

	primary, ok := units[0].Primary()
	if !ok || primary.Ordinal != 0 {
		t.Errorf("first unit primary = %v (%d), want row 0", ok, primary.Ordinal)
	}
}

func TestGroupOrphanSettlement(t *testing.T) {
	rows := []SourceRow{
		settlementRow(0, "2025-01-06", 100.00),
		primaryRow(1, "2025-01-07", "INTEREST EARNED", "", 0, 1.23),
	}

	units := Group(rows, DualRowPolicy{})
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if !units[0].Orphan {
		t.Error("a leading settlement row must become an orphan unit")
	}
	if _, ok := units[0].Primary(); ok {
		t.Error("an orphan unit has no primary")
	}
	if units[1].Orphan {
		t.Error("the interest row is a regular primary")
	}
}

func TestGroupConsecutiveSettlements(t *testing.T) {
	rows := []SourceRow{
		primaryRow(0, "2025-01-02", "YOU SOLD", "SPY", -4, 2100.00),
		settlementRow(1, "2025-01-06", 48000.00),
		settlementRow(2, "2025-01-07", 48000.00),
	}

	units := Group(rows, DualRowPolicy{})
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}
	if got := units[0].Ordinals(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("unit covers %v, want [0 1 2]", got)
	}
}

func TestGroupNonePolicy(t *testing.T) {
	rows := []SourceRow{
		primaryRow(0, "2025-01-02", "YOU BOUGHT", "SPY", 4, -2019.24),
		settlementRow(1, "2025-01-06", 46175.80),
	}

	units := Group(rows, PolicyFor("none"))
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2 under the none policy", len(units))
	}
}

func TestPolicyFor(t *testing.T) {
	if _, ok := PolicyFor("none").(NoSettlementPolicy); !ok {
		t.Error(`PolicyFor("none") should be NoSettlementPolicy`)
	}
	if _, ok := PolicyFor("dual-row").(DualRowPolicy); !ok {
		t.Error(`PolicyFor("dual-row") should be DualRowPolicy`)
	}
	if _, ok := PolicyFor("unheard-of").(DualRowPolicy); !ok {
		t.Error("unknown names fall back to the dual-row policy")
	}
}
