package cascade

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDetectMapping(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    FieldMapping
		wantErr bool
	}{
		{
			name: "brokerage export",
			headers: []string{"Run Date", "Action", "Symbol", "Description", "Quantity",
				"Price ($)", "Amount ($)", "Settlement Date", "Cash Balance"},
			want: FieldMapping{
				Date: "Run Date", Action: "Action", Symbol: "Symbol",
				Description: "Description", Quantity: "Quantity",
				Price: "Price ($)", Amount: "Amount ($)",
				SettlementDate: "Settlement Date", Balance: "Cash Balance",
			},
		},
		{
			name:    "bank export with generic names",
			headers: []string{"Transaction Date", "Transaction Type", "Details", "Net Amount", "Running Balance"},
			want: FieldMapping{
				Date: "Transaction Date", Action: "Transaction Type",
				Description: "Details", Amount: "Net Amount", Balance: "Running Balance",
			},
		},
		{
			// The date column claims "Transaction Date" so the action
			// field must fall through to the next candidate header.
			name:    "date header not reclaimed by action",
			headers: []string{"Transaction Date", "Action Type", "Amount"},
			want: FieldMapping{
				Date: "Transaction Date", Action: "Action Type", Amount: "Amount",
			},
		},
		{
			name:    "missing date column",
			headers: []string{"Action", "Amount"},
			wantErr: true,
		},
		{
			name:    "missing action column",
			headers: []string{"Date", "Amount"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectMapping(tc.headers)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got mapping %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestReadRowsBatchOrdinals(t *testing.T) {
	first := "Run Date,Action,Amount\n1/2/2025,DEPOSIT,100.00\n"
	second := "Run Date,Action,Amount\n1/3/2025,DEPOSIT,200.00\n"
	cfg := DefaultAccountConfig()

	a, _, err := ReadRows(strings.NewReader(first), cfg, 0)
	if err != nil {
		t.Fatalf("first file: %v", err)
	}
	b, _, err := ReadRows(strings.NewReader(second), cfg, len(a))
	if err != nil {
		t.Fatalf("second file: %v", err)
	}

	if a[0].Ordinal != 0 || b[0].Ordinal != 1 {
		t.Fatalf("batch ordinals = %d, %d, want 0, 1", a[0].Ordinal, b[0].Ordinal)
	}
	if a[0].FileOrdinal != 1 || b[0].FileOrdinal != 1 {
		t.Errorf("file ordinals = %d, %d, both files start at 1", a[0].FileOrdinal, b[0].FileOrdinal)
	}

	// Each file's row covered by its own transaction: pooling the batch
	// must not manufacture over-covered rows.
	rows := append(a, b...)
	txns := []*Transaction{
		depositTxn("t1", "2025-01-02", 100, 0),
		depositTxn("t2", "2025-01-03", 200, 1),
	}
	cov := ComputeCoverage(rows, txns, nil)
	if len(cov.OverCovered) != 0 {
		t.Errorf("over-covered = %v, want none", cov.OverCovered)
	}
	if len(cov.Uncovered) != 0 {
		t.Errorf("uncovered = %v, want none", cov.Uncovered)
	}
	if cov.Percent != 100 {
		t.Errorf("percent = %v, want 100", cov.Percent)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"2019.24", "2019.24", true},
		{"-2019.24", "-2019.24", true},
		{"$1,234.56", "1234.56", true},
		{"(12.50)", "-12.5", true},
		{"($1,000.00)", "-1000", true},
		{" 42 ", "42", true},
		{"", "0", false},
		{"--", "0", false},
		{"n/a", "0", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := parseAmount(tc.input)
			if ok != tc.ok {
				t.Fatalf("parseAmount(%q) ok = %v, want %v", tc.input, ok, tc.ok)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("parseAmount(%q) = %s, want %s", tc.input, got, tc.want)
			}
		})
	}
}

func TestMapRow(t *testing.T) {
	m := FieldMapping{
		Date: "Run Date", Action: "Action", Symbol: "Symbol",
		Quantity: "Quantity", Amount: "Amount ($)", Balance: "Cash Balance",
		SettlementDate: "Settlement Date",
	}
	raw := map[string]string{
		"Run Date":        "1/2/2025",
		"Action":          " YOU BOUGHT ",
		"Symbol":          "spy",
		"Quantity":        "4",
		"Amount ($)":      "(2,019.24)",
		"Settlement Date": "1/6/2025",
		"Cash Balance":    "--",
	}

	row := MapRow(raw, m, 3, 7, "USD")

	if row.FileOrdinal != 3 || row.Ordinal != 7 {
		t.Errorf("ordinals = (%d,%d), want (3,7)", row.FileOrdinal, row.Ordinal)
	}
	if row.Date != NewDate(2025, 1, 2) {
		t.Errorf("date = %s, want 2025-01-02", row.Date)
	}
	if row.SettlementDate != NewDate(2025, 1, 6) {
		t.Errorf("settlement date = %s, want 2025-01-06", row.SettlementDate)
	}
	if row.Action != "YOU BOUGHT" {
		t.Errorf("action = %q, want trimmed %q", row.Action, "YOU BOUGHT")
	}
	if row.Symbol != "SPY" {
		t.Errorf("symbol = %q, want normalized %q", row.Symbol, "SPY")
	}
	if !row.Quantity.Equal(Q(4)) {
		t.Errorf("quantity = %s, want 4", row.Quantity)
	}
	if !row.Amount.Equal(M(-2019.24, "USD")) {
		t.Errorf("amount = %s, want -2019.24", row.Amount)
	}
	if row.HasBalance {
		t.Error("a -- balance cell must not set HasBalance")
	}
}

func TestMapRowKeepsUnparseableDate(t *testing.T) {
	m := FieldMapping{Date: "Date", Action: "Action"}
	row := MapRow(map[string]string{"Date": "pending", "Action": "FEE"}, m, 0, 0, "USD")
	if !row.Date.IsZero() {
		t.Errorf("date = %s, want zero for unparseable input", row.Date)
	}
	if row.Action != "FEE" {
		t.Errorf("action = %q, the row must survive a bad date", row.Action)
	}
}

func TestReadRows(t *testing.T) {
	csv := strings.Join([]string{
		"Run Date,Action,Symbol,Quantity,Amount ($),Cash Balance",
		"1/2/2025,YOU BOUGHT,SPY,4,-2019.24,",
		",,,,,46175.80",
		"1/7/2025,ELECTRONIC FUNDS TRANSFER RECEIVED,,,52264.00,",
		",,,,,", // fully empty rows are skipped
	}, "\n")

	rows, mapping, err := ReadRows(strings.NewReader(csv), DefaultAccountConfig(), 0)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if mapping.Date != "Run Date" || mapping.Balance != "Cash Balance" {
		t.Errorf("unexpected mapping %+v", mapping)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i, row := range rows {
		if row.Ordinal != i {
			t.Errorf("row %d has ordinal %d", i, row.Ordinal)
		}
	}
	if !rows[1].HasBalance || !rows[1].Balance.Equal(M(46175.80, "USD")) {
		t.Errorf("settlement row balance = %s, want 46175.80", rows[1].Balance)
	}
}
