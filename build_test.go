package cascade

import (
	"context"
	"reflect"
	"testing"
)

// TestBuildBrokerageBatch walks the canonical dual-row export: a buy with its
// settlement row, then a wire transfer in.
func TestBuildBrokerageBatch(t *testing.T) {
	rows := []SourceRow{
		primaryRow(0, "2025-01-02", "YOU BOUGHT", "SPY", 4, -2019.24),
		settlementRow(1, "2025-01-06", 46175.80),
		primaryRow(2, "2025-01-07", "ELECTRONIC FUNDS TRANSFER RECEIVED", "", 0, 52264.00),
	}
	rows[0].SettlementDate = MustParseDate("2025-01-06")

	units := Group(rows, DualRowPolicy{})
	txns := mustBuild(t, testBuilder(), units)
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}

	buy := txns[0]
	if buy.Type != BuyTxn {
		t.Errorf("first transaction type = %s, want buy", buy.Type)
	}
	if !reflect.DeepEqual(buy.Rows, []int{0, 1}) {
		t.Errorf("buy covers rows %v, want [0 1]", buy.Rows)
	}
	if buy.Settlement != MustParseDate("2025-01-06") {
		t.Errorf("buy settlement = %s, want 2025-01-06", buy.Settlement)
	}
	assertLegs(t, buy, legSpec{AssetAccount, "SPY", 2019.24, 0}, legSpec{CashAccount, CashAccountName, 0, 2019.24})
	if !buy.Entries[0].Quantity.Equal(Q(4)) {
		t.Errorf("asset leg quantity = %s, want 4", buy.Entries[0].Quantity)
	}
	if !buy.CashEffect("").Equal(M(-2019.24, "USD")) {
		t.Errorf("buy cash effect = %s, want -2019.24", buy.CashEffect(""))
	}

	deposit := txns[1]
	if deposit.Type != DepositTxn {
		t.Errorf("second transaction type = %s, want deposit", deposit.Type)
	}
	assertLegs(t, deposit, legSpec{CashAccount, CashAccountName, 52264.00, 0}, legSpec{EquityAccount, ContributionsAccount, 0, 52264.00})
	if !deposit.CashEffect("").Equal(M(52264.00, "USD")) {
		t.Errorf("deposit cash effect = %s, want 52264.00", deposit.CashEffect(""))
	}

	for _, txn := range txns {
		if err := txn.Validate(); err != nil {
			t.Errorf("built transaction does not validate: %v", err)
		}
		if txn.ID == "" {
			t.Error("built transaction has no id")
		}
	}
}

type legSpec struct {
	class   AccountClass
	account string
	debit   float64
	credit  float64
}

func assertLegs(t *testing.T, txn *Transaction, want ...legSpec) {
	t.Helper()
	if len(txn.Entries) != len(want) {
		t.Fatalf("transaction %q has %d legs, want %d", txn.Description, len(txn.Entries), len(want))
	}
	for i, w := range want {
		e := txn.Entries[i]
		if e.Class != w.class || e.Account != w.account {
			t.Errorf("leg %d is %s/%s, want %s/%s", i, e.Class, e.Account, w.class, w.account)
		}
		if !e.Debit.Equal(M(w.debit, "USD")) && !(w.debit == 0 && e.Debit.IsZero()) {
			t.Errorf("leg %d debit = %s, want %v", i, e.Debit, w.debit)
		}
		if !e.Credit.Equal(M(w.credit, "USD")) && !(w.credit == 0 && e.Credit.IsZero()) {
			t.Errorf("leg %d credit = %s, want %v", i, e.Credit, w.credit)
		}
	}
}

func TestBuildRuleTable(t *testing.T) {
	tests := []struct {
		name     string
		row      SourceRow
		wantType TxnType
		want     []legSpec
	}{
		{
			name:     "sell with negative quantity",
			row:      primaryRow(0, "2025-02-03", "YOU SOLD", "SPY", -4, 2100.00),
			wantType: SellTxn,
			want:     []legSpec{{CashAccount, CashAccountName, 2100.00, 0}, {AssetAccount, "SPY", 0, 2100.00}},
		},
		{
			name:     "cash dividend",
			row:      primaryRow(0, "2025-02-03", "DIVIDEND RECEIVED", "SPY", 0, 12.80),
			wantType: DividendTxn,
			want:     []legSpec{{CashAccount, CashAccountName, 12.80, 0}, {IncomeAccount, DividendIncomeAccount, 0, 12.80}},
		},
		{
			name:     "reinvested dividend",
			row:      primaryRow(0, "2025-02-03", "REINVESTMENT", "SPAXX", 12.80, -12.80),
			wantType: DividendTxn,
			want:     []legSpec{{AssetAccount, "SPAXX", 12.80, 0}, {IncomeAccount, DividendIncomeAccount, 0, 12.80}},
		},
		{
			name:     "interest",
			row:      primaryRow(0, "2025-02-28", "INTEREST EARNED", "", 0, 1.10),
			wantType: InterestTxn,
			want:     []legSpec{{CashAccount, CashAccountName, 1.10, 0}, {IncomeAccount, InterestIncomeAccount, 0, 1.10}},
		},
		{
			name:     "fee",
			row:      primaryRow(0, "2025-02-28", "ADVISORY FEE", "", 0, -25.00),
			wantType: FeeTxn,
			want:     []legSpec{{ExpenseAccount, FeesAccount, 25.00, 0}, {CashAccount, CashAccountName, 0, 25.00}},
		},
		{
			name:     "withdrawal",
			row:      primaryRow(0, "2025-03-01", "TRANSFER TO BANK XXXX", "", 0, -1500.00),
			wantType: WithdrawalTxn,
			want:     []legSpec{{EquityAccount, WithdrawalsAccount, 1500.00, 0}, {CashAccount, CashAccountName, 0, 1500.00}},
		},
		{
			name:     "unrecognized cash credit",
			row:      primaryRow(0, "2025-03-01", "CLASS ACTION SETTLEMENT", "", 0, 75.00),
			wantType: OtherTxn,
			want:     []legSpec{{CashAccount, CashAccountName, 75.00, 0}, {IncomeAccount, UncategorizedInAccount, 0, 75.00}},
		},
		{
			name:     "unrecognized cash debit",
			row:      primaryRow(0, "2025-03-01", "ADJUSTMENT", "", 0, -5.00),
			wantType: OtherTxn,
			want:     []legSpec{{ExpenseAccount, UncategorizedOutAcct, 5.00, 0}, {CashAccount, CashAccountName, 0, 5.00}},
		},
		{
			name:     "unrecognized asset acquisition",
			row:      primaryRow(0, "2025-03-01", "CONVERSION", "VTI", 2, -400.00),
			wantType: OtherTxn,
			want:     []legSpec{{AssetAccount, "VTI", 400.00, 0}, {CashAccount, CashAccountName, 0, 400.00}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			txn, berr := testBuilder().Build(TransactionUnit{Rows: []SourceRow{tc.row}})
			if berr != nil {
				t.Fatalf("build: %v", berr)
			}
			if txn.Type != tc.wantType {
				t.Errorf("type = %s, want %s", txn.Type, tc.wantType)
			}
			assertLegs(t, txn, tc.want...)
			if err := txn.Validate(); err != nil {
				t.Errorf("does not validate: %v", err)
			}
		})
	}
}

func TestBuildSellKeepsPositiveQuantity(t *testing.T) {
	txn, berr := testBuilder().Build(TransactionUnit{Rows: []SourceRow{
		primaryRow(0, "2025-02-03", "YOU SOLD", "SPY", -4, 2100.00),
	}})
	if berr != nil {
		t.Fatalf("build: %v", berr)
	}
	if !txn.Entries[1].Quantity.Equal(Q(4)) {
		t.Errorf("sell asset leg quantity = %s, want positive 4", txn.Entries[1].Quantity)
	}
}

func TestBuildErrors(t *testing.T) {
	noDate := primaryRow(0, "2025-01-02", "FEE", "", 0, -1)
	noDate.Date = Date{}

	tests := []struct {
		name string
		unit TransactionUnit
		want BuildReason
	}{
		{
			name: "orphan settlement",
			unit: TransactionUnit{Rows: []SourceRow{settlementRow(4, "2025-01-06", 100)}, Orphan: true},
			want: ReasonNoPrimary,
		},
		{
			name: "missing date",
			unit: TransactionUnit{Rows: []SourceRow{noDate}},
			want: ReasonMissingDate,
		},
		{
			name: "buy without quantity",
			unit: TransactionUnit{Rows: []SourceRow{primaryRow(0, "2025-01-02", "YOU BOUGHT", "SPY", 0, -100)}},
			want: ReasonBadQuantity,
		},
		{
			name: "nothing to balance",
			unit: TransactionUnit{Rows: []SourceRow{primaryRow(0, "2025-01-02", "MEMO ONLY", "", 0, 0)}},
			want: ReasonUnbalanced,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			txn, berr := testBuilder().Build(tc.unit)
			if berr == nil {
				t.Fatalf("expected a build error, got transaction %+v", txn)
			}
			if berr.Reason != tc.want {
				t.Errorf("reason = %q, want %q", berr.Reason, tc.want)
			}
		})
	}
}

// TestBuildAbsorbsRoundingNoise registers a rule whose legs disagree by less
// than half a cent and checks the difference lands in the cash leg.
func TestBuildAbsorbsRoundingNoise(t *testing.T) {
	b := testBuilder()
	b.Register(Rule{
		Name:  "noisy",
		Match: func(r SourceRow) bool { return r.Action == "NOISY" },
		Build: func(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
			return &Transaction{Type: OtherTxn, Entries: []JournalEntry{
				{Class: IncomeAccount, Account: UncategorizedInAccount, Credit: M(100.004, "USD")},
				{Class: CashAccount, Account: CashAccountName, Debit: M(100.00, "USD")},
			}}, nil
		},
	})

	txn, berr := b.Build(TransactionUnit{Rows: []SourceRow{primaryRow(0, "2025-01-02", "NOISY", "", 0, 100)}})
	if berr != nil {
		t.Fatalf("sub-epsilon imbalance must be absorbed, got %v", berr)
	}
	if !txn.Imbalance().IsZero() {
		t.Errorf("imbalance after absorption = %s, want zero", txn.Imbalance())
	}
	if !txn.Entries[1].Debit.Equal(M(100.004, "USD")) {
		t.Errorf("cash leg = %s, the noise must land on the cash side", txn.Entries[1].Debit)
	}
}

// TestBuildRejectsLargeImbalance checks that anything over the tolerance is a
// construction error rather than a silently patched transaction.
func TestBuildRejectsLargeImbalance(t *testing.T) {
	b := testBuilder()
	b.Register(Rule{
		Name:  "broken",
		Match: func(r SourceRow) bool { return r.Action == "BROKEN" },
		Build: func(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
			return &Transaction{Type: OtherTxn, Entries: []JournalEntry{
				{Class: IncomeAccount, Account: UncategorizedInAccount, Credit: M(105.00, "USD")},
				{Class: CashAccount, Account: CashAccountName, Debit: M(100.00, "USD")},
			}}, nil
		},
	})

	_, berr := b.Build(TransactionUnit{Rows: []SourceRow{primaryRow(0, "2025-01-02", "BROKEN", "", 0, 100)}})
	if berr == nil || berr.Reason != ReasonUnbalanced {
		t.Fatalf("got %v, want an unbalanced construction error", berr)
	}
}

func TestBuildAllDeterministic(t *testing.T) {
	rows := []SourceRow{
		primaryRow(0, "2025-01-02", "YOU BOUGHT", "SPY", 4, -2019.24),
		settlementRow(1, "2025-01-06", 46175.80),
		primaryRow(2, "2025-01-07", "ELECTRONIC FUNDS TRANSFER RECEIVED", "", 0, 52264.00),
		primaryRow(3, "2025-01-09", "INTEREST EARNED", "", 0, 1.10),
	}

	run := func() []*Transaction {
		units := Group(rows, DualRowPolicy{})
		txns, errs := testBuilder().BuildAll(context.Background(), units, 3)
		if len(errs) != 0 {
			t.Fatalf("build errors: %v", errs)
		}
		return txns
	}

	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("got %d then %d transactions from the same rows", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("transaction %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBuildAllKeepsUnitOrder(t *testing.T) {
	rows := []SourceRow{
		primaryRow(0, "2025-01-02", "YOU BOUGHT", "SPY", 4, -2019.24),
		settlementRow(1, "2025-01-06", 46175.80),
		primaryRow(2, "2025-01-07", "ELECTRONIC FUNDS TRANSFER RECEIVED", "", 0, 52264.00),
		primaryRow(3, "2025-01-08", "MEMO ONLY", "", 0, 0), // unbuildable
		primaryRow(4, "2025-01-09", "INTEREST EARNED", "", 0, 1.10),
	}

	units := Group(rows, DualRowPolicy{})
	txns, errs := testBuilder().BuildAll(context.Background(), units, 3)

	if len(txns) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txns))
	}
	if len(errs) != 1 || errs[0].Ordinal != 3 {
		t.Fatalf("got errors %v, want one at row 3", errs)
	}
	wantTypes := []TxnType{BuyTxn, DepositTxn, InterestTxn}
	for i, txn := range txns {
		if txn.Type != wantTypes[i] {
			t.Errorf("transaction %d type = %s, want %s (input order must be kept)", i, txn.Type, wantTypes[i])
		}
	}
}
