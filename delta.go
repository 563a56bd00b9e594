package cascade

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DeltaOp names a ledger mutation primitive.
type DeltaOp string

const (
	CreateDelta  DeltaOp = "create"
	UpdateDelta  DeltaOp = "update"
	DeleteDelta  DeltaOp = "delete"
	ExcludeDelta DeltaOp = "exclude"
)

// TransactionDelta is the single reversible mutation unit shared by
// gap-filling and reconciliation. Create carries a new transaction payload;
// update carries a target id plus the replacement; delete carries a target
// id; exclude carries row ordinals.
type TransactionDelta struct {
	Op          DeltaOp      `json:"op"`
	Reason      string       `json:"reason"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Target      string       `json:"target,omitempty"` // transaction id for update/delete
	ExcludeRows []int        `json:"excludeRows,omitempty"`
}

// Applier applies deltas to a ledger. Each Apply returns the inverse delta,
// so a fix that worsens state can be rolled back with the same primitive.
type Applier struct {
	ledger *Ledger
	log    zerolog.Logger
}

// NewApplier creates an Applier for a ledger.
func NewApplier(ledger *Ledger, log zerolog.Logger) *Applier {
	return &Applier{ledger: ledger, log: log}
}

// Apply executes one delta and returns its inverse. All four operations are
// idempotent under re-application of an identical delta; an idempotent no-op
// returns a no-op inverse.
//
// Update is implemented as delete-then-create rather than in-place edit:
// partial mutation of a balanced multi-leg structure is error-prone to keep
// consistent.
func (a *Applier) Apply(d TransactionDelta) (inverse TransactionDelta, err error) {
	switch d.Op {
	case CreateDelta:
		return a.create(d)
	case UpdateDelta:
		return a.update(d)
	case DeleteDelta:
		return a.delete(d)
	case ExcludeDelta:
		return a.exclude(d)
	case unexcludeOp:
		a.ledger.Unexclude(d.ExcludeRows...)
		return TransactionDelta{Op: ExcludeDelta, ExcludeRows: d.ExcludeRows, Reason: d.Reason}, nil
	default:
		return TransactionDelta{}, fmt.Errorf("unknown delta operation %q", d.Op)
	}
}

// Revert applies the inverse delta returned by a previous Apply.
func (a *Applier) Revert(inverse TransactionDelta) error {
	if inverse.Op == "" {
		return nil // no-op inverse
	}
	_, err := a.Apply(inverse)
	return err
}

func (a *Applier) create(d TransactionDelta) (TransactionDelta, error) {
	if d.Transaction == nil {
		return TransactionDelta{}, fmt.Errorf("create delta carries no transaction")
	}
	if err := d.Transaction.Validate(); err != nil {
		return TransactionDelta{}, fmt.Errorf("create delta rejected: %w", err)
	}
	if existing, ok := a.ledger.Get(d.Transaction.ID); ok {
		if existing.Equal(d.Transaction) {
			return TransactionDelta{}, nil // identical re-application
		}
		return TransactionDelta{}, fmt.Errorf("transaction %s already exists with different content", d.Transaction.ID)
	}
	a.ledger.Append(d.Transaction)
	a.log.Info().Str("txn", d.Transaction.ID).Str("reason", d.Reason).Msg("delta: create")
	return TransactionDelta{Op: DeleteDelta, Target: d.Transaction.ID, Reason: "revert " + d.Reason}, nil
}

func (a *Applier) update(d TransactionDelta) (TransactionDelta, error) {
	if d.Transaction == nil || d.Target == "" {
		return TransactionDelta{}, fmt.Errorf("update delta needs a target and a replacement")
	}
	if err := d.Transaction.Validate(); err != nil {
		return TransactionDelta{}, fmt.Errorf("update delta rejected: %w", err)
	}
	prior, ok := a.ledger.Get(d.Target)
	if !ok {
		// Identical re-application: the replacement may already be in place.
		if existing, found := a.ledger.Get(d.Transaction.ID); found && existing.Equal(d.Transaction) {
			return TransactionDelta{}, nil
		}
		return TransactionDelta{}, fmt.Errorf("update target %s not found", d.Target)
	}
	if prior.Equal(d.Transaction) {
		return TransactionDelta{}, nil
	}
	a.ledger.Remove(d.Target)
	a.ledger.Append(d.Transaction)
	a.log.Info().Str("prior", d.Target).Str("txn", d.Transaction.ID).Str("reason", d.Reason).Msg("delta: update")
	return TransactionDelta{
		Op:          UpdateDelta,
		Target:      d.Transaction.ID,
		Transaction: prior,
		Reason:      "revert " + d.Reason,
	}, nil
}

func (a *Applier) delete(d TransactionDelta) (TransactionDelta, error) {
	if d.Target == "" {
		return TransactionDelta{}, fmt.Errorf("delete delta carries no target")
	}
	prior, ok := a.ledger.Get(d.Target)
	if !ok {
		return TransactionDelta{}, nil // already gone
	}
	a.ledger.Remove(d.Target)
	a.log.Info().Str("txn", d.Target).Str("reason", d.Reason).Msg("delta: delete")
	return TransactionDelta{Op: CreateDelta, Transaction: prior, Reason: "revert " + d.Reason}, nil
}

func (a *Applier) exclude(d TransactionDelta) (TransactionDelta, error) {
	if len(d.ExcludeRows) == 0 {
		return TransactionDelta{}, fmt.Errorf("exclude delta carries no rows")
	}
	var fresh []int
	for _, ord := range d.ExcludeRows {
		if !a.ledger.IsExcluded(ord) {
			fresh = append(fresh, ord)
		}
	}
	if len(fresh) == 0 {
		return TransactionDelta{}, nil // already excluded
	}
	a.ledger.Exclude(d.Reason, fresh...)
	a.log.Info().Ints("rows", fresh).Str("reason", d.Reason).Msg("delta: exclude")
	inverse := TransactionDelta{Op: unexcludeOp, ExcludeRows: fresh, Reason: "revert " + d.Reason}
	return inverse, nil
}

// unexcludeOp is internal: it only ever appears in inverse deltas.
const unexcludeOp DeltaOp = "unexclude"
