package cascade

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BuildReason is the typed cause of a per-unit construction failure.
type BuildReason string

const (
	ReasonNoPrimary   BuildReason = "no primary row"
	ReasonMissingDate BuildReason = "missing date"
	ReasonBadQuantity BuildReason = "non-positive quantity"
	ReasonUnbalanced  BuildReason = "unbalanceable shape"
)

// BuildError reports why one transaction unit could not be built. It carries
// enough to locate the offending row; the batch proceeds past it.
type BuildError struct {
	Reason  BuildReason
	Ordinal int // ordinal of the unit's first row
	Date    Date
	Action  string
	Detail  string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("cannot build unit at row %d (%s %q): %s", e.Ordinal, e.Date, e.Action, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Rule is one entry of the builder's prioritized dispatch table. Match
// inspects the unit's primary row; Build fixes the leg shapes. Rules are
// tried in order and the first match wins, so an institution registers a new
// action without touching existing rules.
type Rule struct {
	Name  string
	Match func(primary SourceRow) bool
	Build func(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError)
}

// Builder converts transaction units into balanced transactions via the rule
// table, resolving asset legs through a shared registry.
type Builder struct {
	registry *AssetRegistry
	cfg      AccountConfig
	rules    []Rule
	log      zerolog.Logger
}

// NewBuilder creates a Builder with the default rule table.
func NewBuilder(registry *AssetRegistry, cfg AccountConfig, log zerolog.Logger) *Builder {
	return &Builder{
		registry: registry,
		cfg:      cfg.withDefaults(),
		rules:    defaultRules(),
		log:      log,
	}
}

// Register adds an institution-specific rule ahead of the default table.
func (b *Builder) Register(rule Rule) {
	b.rules = append([]Rule{rule}, b.rules...)
}

// actionHas reports whether the primary row's action text contains any of the
// given fragments, case-insensitively.
func actionHas(row SourceRow, fragments ...string) bool {
	action := strings.ToUpper(row.Action)
	for _, f := range fragments {
		if strings.Contains(action, f) {
			return true
		}
	}
	return false
}

func defaultRules() []Rule {
	return []Rule{
		{
			Name:  "buy",
			Match: func(r SourceRow) bool { return actionHas(r, "BOUGHT", "BUY") },
			Build: buildBuy,
		},
		{
			Name:  "sell",
			Match: func(r SourceRow) bool { return actionHas(r, "SOLD", "SELL") },
			Build: buildSell,
		},
		{
			Name: "reinvested dividend",
			Match: func(r SourceRow) bool {
				return actionHas(r, "DIVIDEND", "REINVESTMENT") && !r.Quantity.IsZero()
			},
			Build: buildReinvestedDividend,
		},
		{
			Name:  "cash dividend",
			Match: func(r SourceRow) bool { return actionHas(r, "DIVIDEND") },
			Build: buildCashDividend,
		},
		{
			Name:  "interest",
			Match: func(r SourceRow) bool { return actionHas(r, "INTEREST") },
			Build: buildInterest,
		},
		{
			Name:  "fee",
			Match: func(r SourceRow) bool { return actionHas(r, "FEE", "COMMISSION") },
			Build: buildFee,
		},
		{
			Name: "transfer in",
			Match: func(r SourceRow) bool {
				return actionHas(r, "TRANSFER", "DEPOSIT", "CONTRIBUTION") && !r.Amount.IsNegative()
			},
			Build: buildTransferIn,
		},
		{
			Name: "transfer out",
			Match: func(r SourceRow) bool {
				return actionHas(r, "TRANSFER", "WITHDRAWAL", "DISTRIBUTION")
			},
			Build: buildTransferOut,
		},
		{
			Name:  "unrecognized",
			Match: func(SourceRow) bool { return true },
			Build: buildFallback,
		},
	}
}

// Build converts one unit into a balanced transaction, or fails with a typed
// error. A failed validation is a hard construction error: the unit is
// rejected and reported, never force-balanced with a synthetic rounding leg.
func (b *Builder) Build(unit TransactionUnit) (*Transaction, *BuildError) {
	primary, ok := unit.Primary()
	if !ok {
		ordinal := 0
		if len(unit.Rows) > 0 {
			ordinal = unit.Rows[0].Ordinal
		}
		return nil, &BuildError{Reason: ReasonNoPrimary, Ordinal: ordinal, Detail: "orphan settlement row"}
	}
	if primary.Date.IsZero() {
		return nil, &BuildError{Reason: ReasonMissingDate, Ordinal: primary.Ordinal, Action: primary.Action}
	}

	for _, rule := range b.rules {
		if !rule.Match(primary) {
			continue
		}
		txn, berr := rule.Build(b, unit, primary)
		if berr != nil {
			return nil, berr
		}
		return b.accept(txn, unit, primary)
	}
	// Unreachable: the table ends with an always-matching fallback.
	return nil, &BuildError{Reason: ReasonUnbalanced, Ordinal: primary.Ordinal, Action: primary.Action, Detail: "no rule matched"}
}

// accept finalizes and validates a built transaction. Imbalance strictly
// below the noise epsilon is absorbed into the cash leg and logged; anything
// beyond the balance tolerance rejects the unit.
func (b *Builder) accept(txn *Transaction, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	txn.ID = uuid.NewString()
	txn.Date = primary.Date
	txn.Settlement = primary.SettlementDate
	txn.Rows = unit.Ordinals()
	if txn.Description == "" {
		txn.Description = primary.Action
	}

	if diff := txn.Imbalance(); !diff.IsZero() && diff.Decimal().Abs().LessThan(noiseEpsilon) {
		for i := range txn.Entries {
			if txn.Entries[i].Class != CashAccount {
				continue
			}
			if !txn.Entries[i].Debit.IsZero() {
				txn.Entries[i].Debit = txn.Entries[i].Debit.Sub(diff)
			} else {
				txn.Entries[i].Credit = txn.Entries[i].Credit.Add(diff)
			}
			b.log.Warn().
				Int("row", primary.Ordinal).
				Str("imbalance", diff.String()).
				Msg("absorbed sub-epsilon rounding noise into cash leg")
			break
		}
	}

	if err := txn.Validate(); err != nil {
		return nil, &BuildError{
			Reason:  ReasonUnbalanced,
			Ordinal: primary.Ordinal,
			Date:    primary.Date,
			Action:  primary.Action,
			Detail:  err.Error(),
		}
	}
	return txn, nil
}

// unitAmount returns the positive cash amount of the unit, preferring the
// primary row and falling back to quantity times price.
func unitAmount(primary SourceRow) Money {
	if !primary.Amount.IsZero() {
		return primary.Amount.Abs()
	}
	if !primary.Quantity.IsZero() && !primary.Price.IsZero() {
		return primary.Price.Abs().Mul(primary.Quantity)
	}
	return primary.Amount
}

func (b *Builder) assetLeg(primary SourceRow, debit bool, amount Money) JournalEntry {
	asset := b.registry.Resolve(primary.Symbol, primary.Description)
	leg := JournalEntry{
		Class:    AssetAccount,
		Account:  asset.Symbol,
		Quantity: primary.Quantity,
		Unit:     asset.Symbol,
		Asset:    asset,
		Rows:     []int{primary.Ordinal},
	}
	if debit {
		leg.Debit = amount
	} else {
		leg.Credit = amount
	}
	return leg
}

func cashLeg(unit TransactionUnit, debit bool, amount Money) JournalEntry {
	leg := JournalEntry{Class: CashAccount, Account: CashAccountName, Rows: unit.Ordinals()}
	if debit {
		leg.Debit = amount
	} else {
		leg.Credit = amount
	}
	return leg
}

func namedLeg(class AccountClass, account string, primary SourceRow, debit bool, amount Money) JournalEntry {
	leg := JournalEntry{Class: class, Account: account, Rows: []int{primary.Ordinal}}
	if debit {
		leg.Debit = amount
	} else {
		leg.Credit = amount
	}
	return leg
}

func buildBuy(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	if !primary.Quantity.IsPositive() {
		return nil, &BuildError{Reason: ReasonBadQuantity, Ordinal: primary.Ordinal, Date: primary.Date, Action: primary.Action,
			Detail: fmt.Sprintf("got %s", primary.Quantity)}
	}
	amount := unitAmount(primary)
	return &Transaction{
		Type: BuyTxn,
		Entries: []JournalEntry{
			b.assetLeg(primary, true, amount),
			cashLeg(unit, false, amount),
		},
	}, nil
}

func buildSell(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	if primary.Quantity.IsZero() {
		return nil, &BuildError{Reason: ReasonBadQuantity, Ordinal: primary.Ordinal, Date: primary.Date, Action: primary.Action,
			Detail: fmt.Sprintf("got %s", primary.Quantity)}
	}
	amount := unitAmount(primary)
	// Sell exports often carry a negative quantity; the leg keeps it positive.
	leg := b.assetLeg(primary, false, amount)
	if leg.Quantity.IsNegative() {
		leg.Quantity = leg.Quantity.Neg()
	}
	return &Transaction{
		Type: SellTxn,
		Entries: []JournalEntry{
			cashLeg(unit, true, amount),
			leg,
		},
	}, nil
}

func buildCashDividend(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	amount := unitAmount(primary)
	return &Transaction{
		Type: DividendTxn,
		Entries: []JournalEntry{
			cashLeg(unit, true, amount),
			namedLeg(IncomeAccount, DividendIncomeAccount, primary, false, amount),
		},
	}, nil
}

func buildReinvestedDividend(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	if !primary.Quantity.IsPositive() {
		return nil, &BuildError{Reason: ReasonBadQuantity, Ordinal: primary.Ordinal, Date: primary.Date, Action: primary.Action,
			Detail: fmt.Sprintf("got %s", primary.Quantity)}
	}
	amount := unitAmount(primary)
	return &Transaction{
		Type: DividendTxn,
		Entries: []JournalEntry{
			b.assetLeg(primary, true, amount),
			namedLeg(IncomeAccount, DividendIncomeAccount, primary, false, amount),
		},
	}, nil
}

func buildInterest(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	amount := unitAmount(primary)
	return &Transaction{
		Type: InterestTxn,
		Entries: []JournalEntry{
			cashLeg(unit, true, amount),
			namedLeg(IncomeAccount, InterestIncomeAccount, primary, false, amount),
		},
	}, nil
}

func buildFee(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	amount := unitAmount(primary)
	return &Transaction{
		Type: FeeTxn,
		Entries: []JournalEntry{
			namedLeg(ExpenseAccount, FeesAccount, primary, true, amount),
			cashLeg(unit, false, amount),
		},
	}, nil
}

func buildTransferIn(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	amount := unitAmount(primary)
	return &Transaction{
		Type: DepositTxn,
		Entries: []JournalEntry{
			cashLeg(unit, true, amount),
			namedLeg(EquityAccount, ContributionsAccount, primary, false, amount),
		},
	}, nil
}

func buildTransferOut(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	amount := unitAmount(primary)
	return &Transaction{
		Type: WithdrawalTxn,
		Entries: []JournalEntry{
			namedLeg(EquityAccount, WithdrawalsAccount, primary, true, amount),
			cashLeg(unit, false, amount),
		},
	}, nil
}

// buildFallback handles unrecognized actions with a generic asset or cash
// shape inferred from the sign of the amount and the presence of asset data.
func buildFallback(b *Builder, unit TransactionUnit, primary SourceRow) (*Transaction, *BuildError) {
	amount := unitAmount(primary)
	if amount.IsZero() {
		return nil, &BuildError{Reason: ReasonUnbalanced, Ordinal: primary.Ordinal, Date: primary.Date, Action: primary.Action,
			Detail: "no amount to balance"}
	}

	if primary.Symbol != "" && !primary.Quantity.IsZero() {
		// Asset shape: negative amount acquires, positive disposes.
		if primary.Amount.IsNegative() {
			return &Transaction{Type: OtherTxn, Entries: []JournalEntry{
				b.assetLeg(primary, true, amount),
				cashLeg(unit, false, amount),
			}}, nil
		}
		return &Transaction{Type: OtherTxn, Entries: []JournalEntry{
			cashLeg(unit, true, amount),
			b.assetLeg(primary, false, amount),
		}}, nil
	}

	// Cash shape.
	if primary.Amount.IsNegative() {
		return &Transaction{Type: OtherTxn, Entries: []JournalEntry{
			namedLeg(ExpenseAccount, UncategorizedOutAcct, primary, true, amount),
			cashLeg(unit, false, amount),
		}}, nil
	}
	return &Transaction{Type: OtherTxn, Entries: []JournalEntry{
		cashLeg(unit, true, amount),
		namedLeg(IncomeAccount, UncategorizedInAccount, primary, false, amount),
	}}, nil
}

// BuildAll builds every unit on a small worker pool. Units are independent,
// so the only shared state is the asset registry, which serializes first
// creation per symbol. Results keep the input unit order for stable display.
func (b *Builder) BuildAll(ctx context.Context, units []TransactionUnit, workers int) ([]*Transaction, []*BuildError) {
	if workers < 1 {
		workers = 1
	}

	type result struct {
		txn *Transaction
		err *BuildError
	}
	results := make([]result, len(units))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				txn, err := b.Build(units[i])
				results[i] = result{txn: txn, err: err}
			}
		}()
	}

feed:
	for i := range units {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	var txns []*Transaction
	var errs []*BuildError
	for _, r := range results {
		switch {
		case r.txn != nil:
			txns = append(txns, r.txn)
		case r.err != nil:
			b.log.Warn().Int("row", r.err.Ordinal).Str("reason", string(r.err.Reason)).Msg("skipped unit")
			errs = append(errs, r.err)
		}
	}
	return txns, errs
}
