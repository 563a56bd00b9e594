package cascade

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// TxnType is the classified economic type of a transaction.
type TxnType string

const (
	BuyTxn        TxnType = "buy"
	SellTxn       TxnType = "sell"
	DividendTxn   TxnType = "dividend"
	TransferTxn   TxnType = "transfer"
	FeeTxn        TxnType = "fee"
	InterestTxn   TxnType = "interest"
	DepositTxn    TxnType = "deposit"
	WithdrawalTxn TxnType = "withdrawal"
	OtherTxn      TxnType = "other"
)

// AccountClass classifies a journal entry's account.
type AccountClass string

const (
	AssetAccount     AccountClass = "asset"
	CashAccount      AccountClass = "cash"
	LiabilityAccount AccountClass = "liability"
	EquityAccount    AccountClass = "equity"
	IncomeAccount    AccountClass = "income"
	ExpenseAccount   AccountClass = "expense"
)

// Well-known account names used by the builder's rule table.
const (
	CashAccountName        = "Cash"
	DividendIncomeAccount  = "Dividend Income"
	InterestIncomeAccount  = "Interest Income"
	FeesAccount            = "Fees & Commissions"
	ContributionsAccount   = "Owner Contributions"
	WithdrawalsAccount     = "Owner Withdrawals"
	UncategorizedInAccount = "Uncategorized Income"
	UncategorizedOutAcct   = "Uncategorized Expense"
)

// balanceTolerance is the largest debit/credit imbalance a transaction may
// carry and still validate.
var balanceTolerance = decimal.RequireFromString("0.01")

// noiseEpsilon bounds true floating-point noise. Imbalance strictly below it
// may be absorbed into the cash leg; anything at or above it up to the
// tolerance is kept as-is, and beyond the tolerance the transaction is
// rejected. Synthetic rounding legs are never injected: they hide real
// data-quality problems.
var noiseEpsilon = decimal.RequireFromString("0.005")

// JournalEntry is one leg of a transaction. Exactly one of Debit or Credit is
// set, and both are positive. A leg is exclusively owned by its Transaction.
type JournalEntry struct {
	Class    AccountClass `json:"class"`
	Account  string       `json:"account"`
	Debit    Money        `json:"debit,omitempty"`
	Credit   Money        `json:"credit,omitempty"`
	Quantity Quantity     `json:"quantity,omitempty"`
	Unit     string       `json:"unit,omitempty"` // unit of Quantity, usually the asset symbol
	Asset    *Asset       `json:"-"`
	Rows     []int        `json:"rows,omitempty"` // contributing row ordinals
}

// Amount returns the signed cash effect of the leg: debits positive,
// credits negative.
func (e JournalEntry) Amount() Money {
	if !e.Debit.IsZero() {
		return e.Debit
	}
	return e.Credit.Neg()
}

// Transaction is one economic event: a balanced set of journal entries built
// from a transaction unit.
type Transaction struct {
	ID          string         `json:"id"`
	Date        Date           `json:"date"`
	Settlement  Date           `json:"settlement,omitempty"`
	Description string         `json:"description"`
	Type        TxnType        `json:"type"`
	Entries     []JournalEntry `json:"entries"`
	Rows        []int          `json:"rows"` // contributing row ordinals, sorted

	// Reconciliation snapshot, populated by the checkpoint builder.
	GroundTruth    Money `json:"groundTruth,omitempty"`
	HasGroundTruth bool  `json:"hasGroundTruth,omitempty"`
	Computed       Money `json:"computed,omitempty"`
	Discrepancy    Money `json:"discrepancy,omitempty"`
}

// Debits sums the debit side of all entries.
func (t *Transaction) Debits() Money {
	var sum Money
	for _, e := range t.Entries {
		sum = sum.Add(e.Debit)
	}
	return sum
}

// Credits sums the credit side of all entries.
func (t *Transaction) Credits() Money {
	var sum Money
	for _, e := range t.Entries {
		sum = sum.Add(e.Credit)
	}
	return sum
}

// Imbalance returns debits minus credits.
func (t *Transaction) Imbalance() Money {
	return t.Debits().Sub(t.Credits())
}

// MinRowOrdinal returns the smallest contributing row ordinal, used as the
// tie-breaker for same-day ordering. A transaction without rows sorts last.
func (t *Transaction) MinRowOrdinal() int {
	if len(t.Rows) == 0 {
		return int(^uint(0) >> 1)
	}
	return slices.Min(t.Rows)
}

// EffectiveDate returns the date this transaction posts under the given basis.
func (t *Transaction) EffectiveDate(basis DateBasis) Date {
	if basis == SettlementDateBasis && !t.Settlement.IsZero() {
		return t.Settlement
	}
	return t.Date
}

// CashEffect returns the transaction's signed effect on the account's running
// balance: cash-classified legs plus legs held in the designated balance
// instrument (e.g. a sweep fund).
func (t *Transaction) CashEffect(balanceInstrument string) Money {
	var sum Money
	instrument := NormalizeSymbol(balanceInstrument)
	for _, e := range t.Entries {
		if e.Class == CashAccount || (instrument != "" && NormalizeSymbol(e.Account) == instrument) {
			sum = sum.Add(e.Amount())
		}
	}
	return sum
}

// Validate checks the double-entry invariants: at least two legs, every leg
// with exactly one positive side, and debits equal to credits within the
// balance tolerance.
func (t *Transaction) Validate() error {
	if len(t.Entries) < 2 {
		return fmt.Errorf("transaction %q on %s has %d legs, need at least 2", t.Description, t.Date, len(t.Entries))
	}
	for i, e := range t.Entries {
		debit, credit := !e.Debit.IsZero(), !e.Credit.IsZero()
		if debit == credit {
			return fmt.Errorf("leg %d of %q must have exactly one of debit or credit set", i, t.Description)
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return fmt.Errorf("leg %d of %q has a negative amount", i, t.Description)
		}
	}
	if diff := t.Imbalance(); diff.Decimal().Abs().GreaterThan(balanceTolerance) {
		return fmt.Errorf("transaction %q on %s is unbalanced: debits %s, credits %s",
			t.Description, t.Date, t.Debits(), t.Credits())
	}
	return nil
}

// Equal reports whether two transactions describe the same event with the
// same legs. IDs are ignored so a re-built transaction compares equal.
func (t *Transaction) Equal(o *Transaction) bool {
	if t.Date != o.Date || t.Type != o.Type || t.Description != o.Description {
		return false
	}
	if !slices.Equal(t.Rows, o.Rows) || len(t.Entries) != len(o.Entries) {
		return false
	}
	for i, e := range t.Entries {
		oe := o.Entries[i]
		if e.Class != oe.Class || e.Account != oe.Account ||
			!e.Debit.Equal(oe.Debit) || !e.Credit.Equal(oe.Credit) ||
			!e.Quantity.Equal(oe.Quantity) {
			return false
		}
	}
	return true
}
