package cascade

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ReconcileOptions tune one reconciliation run.
type ReconcileOptions struct {
	// MaxRounds bounds the scan/investigate/apply loop so the run always
	// terminates. Hitting the cap is a "partially reconciled" terminal
	// state, not an error.
	MaxRounds int
	// AutoApply is the confidence at or above which a fix applies without
	// approval.
	AutoApply float64
	// Hold is the confidence at or above which a fix is held for external
	// approval. Below it the fix is only recorded.
	Hold float64
	// ContextDays is the half-width of the row/transaction window sent to
	// the oracle around each discrepancy.
	ContextDays int
	// Workers bounds how many oracle investigations run concurrently
	// within a round. Applying fixes stays sequential.
	Workers int
}

// DefaultReconcileOptions returns the standard gates and bounds.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{
		MaxRounds:   3,
		AutoApply:   0.95,
		Hold:        0.70,
		ContextDays: 5,
		Workers:     4,
	}
}

// ReconcileSummary reports the outcome of a run.
type ReconcileSummary struct {
	Rounds          int             `json:"rounds"`
	InitialMax      Money           `json:"initialMax"`
	FinalMax        Money           `json:"finalMax"`
	FixesApplied    int             `json:"fixesApplied"`
	FullyReconciled bool            `json:"fullyReconciled"`
	Unresolved      []Discrepancy   `json:"unresolved,omitempty"`
	Held            []ProposedFix   `json:"held,omitempty"`
	Investigations  []Investigation `json:"investigations,omitempty"`
}

// Reconciler drives the confidence-gated, auditable correction loop for one
// account: scan for discrepancies, investigate each through the oracle,
// apply eligible fixes, and scan again.
type Reconciler struct {
	ledger *Ledger
	rows   []SourceRow
	cfg    AccountConfig
	oracle Oracle
	opts   ReconcileOptions
	log    zerolog.Logger
}

// NewReconciler creates a Reconciler over a ledger and its source rows.
func NewReconciler(ledger *Ledger, rows []SourceRow, cfg AccountConfig, oracle Oracle, opts ReconcileOptions, log zerolog.Logger) *Reconciler {
	if opts.MaxRounds <= 0 {
		opts = DefaultReconcileOptions()
	}
	return &Reconciler{
		ledger: ledger,
		rows:   rows,
		cfg:    cfg.withDefaults(),
		oracle: oracle,
		opts:   opts,
		log:    log,
	}
}

// scan re-derives checkpoints and coverage from current ledger state and
// returns the open discrepancies. Recomputing from persisted transaction
// state (not in-memory progress) is what makes an interrupted run resumable.
func (r *Reconciler) scan() ([]Discrepancy, []BalanceCheckpoint) {
	txns := r.ledger.Transactions()
	checkpoints := BuildCheckpoints(r.rows, txns, r.cfg)
	cov := ComputeCoverage(r.rows, txns, r.ledger.Excluded())
	return DetectDiscrepancies(r.rows, txns, checkpoints, cov), checkpoints
}

// contextWindow gathers the rows, transactions and balance series within
// ContextDays of a discrepancy.
func (r *Reconciler) contextWindow(d Discrepancy, checkpoints []BalanceCheckpoint) OracleRequest {
	from, to := d.From.Add(-r.opts.ContextDays), d.To.Add(r.opts.ContextDays)
	inWindow := func(day Date) bool { return !day.Before(from) && !day.After(to) }

	req := OracleRequest{Discrepancy: d}
	for _, row := range r.rows {
		if inWindow(row.Date) {
			req.Rows = append(req.Rows, row)
		}
	}
	for _, t := range r.ledger.Transactions() {
		if inWindow(t.Date) {
			req.Transactions = append(req.Transactions, t)
		}
	}
	for _, cp := range checkpoints {
		if inWindow(cp.Date) {
			req.Balances = append(req.Balances, cp)
		}
	}
	return req
}

// Run executes the reconciliation loop under the account's advisory lock.
// It only errors on cancellation or an invariant the applier cannot undo;
// running out of rounds is a normal, partially reconciled outcome.
func (r *Reconciler) Run(ctx context.Context) (ReconcileSummary, error) {
	release, err := LockAccount(r.ledger.Account())
	if err != nil {
		return ReconcileSummary{}, err
	}
	defer release()

	var summary ReconcileSummary

	_, checkpoints := r.scan()
	summary.InitialMax = MaxDiscrepancy(checkpoints)

	for round := 1; round <= r.opts.MaxRounds; round++ {
		// Cancellation is only honored between rounds, so no delta is ever
		// left partially applied. Earlier rounds may have applied fixes, so
		// the final figure comes from a fresh scan, not the initial one.
		if err := ctx.Err(); err != nil {
			_, cps := r.scan()
			summary.FinalMax = MaxDiscrepancy(cps)
			return summary, err
		}
		summary.Rounds = round

		var discrepancies []Discrepancy
		discrepancies, checkpoints = r.scan()
		if len(discrepancies) == 0 {
			summary.FullyReconciled = true
			summary.FinalMax = MaxDiscrepancy(checkpoints)
			r.log.Info().Int("round", round).Msg("fully reconciled")
			return summary, nil
		}

		investigations := r.investigateAll(ctx, discrepancies, checkpoints)
		for i, d := range discrepancies {
			if investigations[i] == nil {
				continue // unresolved for this round
			}
			summary.Investigations = append(summary.Investigations, *investigations[i])

			fix, idx := bestFix(investigations[i].Fixes)
			switch {
			case idx < 0:
				// Empty or malformed response: no fix found.
			case fix.Confidence >= r.opts.AutoApply:
				if r.applyFix(d, fix) {
					summary.Investigations[len(summary.Investigations)-1].AppliedFix = idx
					summary.FixesApplied++
				}
			case fix.Confidence >= r.opts.Hold:
				summary.Held = append(summary.Held, fix)
			default:
				// Recorded in the investigation, never auto-applied.
			}
		}
	}

	finalDiscrepancies, finalCheckpoints := r.scan()
	summary.FinalMax = MaxDiscrepancy(finalCheckpoints)
	summary.FullyReconciled = len(finalDiscrepancies) == 0
	summary.Unresolved = finalDiscrepancies
	r.log.Info().
		Int("rounds", summary.Rounds).
		Int("fixes", summary.FixesApplied).
		Bool("fullyReconciled", summary.FullyReconciled).
		Msg("reconciliation run finished")
	return summary, nil
}

// investigateAll runs a round's investigations on a fixed pool of Workers
// goroutines. The ledger is only read during this phase; results come back
// indexed by discrepancy, nil where the oracle failed.
func (r *Reconciler) investigateAll(ctx context.Context, discrepancies []Discrepancy, checkpoints []BalanceCheckpoint) []*Investigation {
	workers := r.opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*Investigation, len(discrepancies))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if inv, ok := r.investigate(ctx, discrepancies[i], checkpoints); ok {
					results[i] = &inv
				}
			}
		}()
	}
	for i := range discrepancies {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return results
}

// investigate asks the oracle about one discrepancy. Oracle failures mark it
// unresolved for the round, never abort the run.
func (r *Reconciler) investigate(ctx context.Context, d Discrepancy, checkpoints []BalanceCheckpoint) (Investigation, bool) {
	inv, err := r.oracle.Investigate(ctx, r.contextWindow(d, checkpoints))
	if err != nil {
		r.log.Warn().Err(err).Str("discrepancy", d.ID).Msg("oracle investigation failed")
		return Investigation{}, false
	}
	inv.Discrepancy = d.ID
	if inv.AppliedFix == 0 && len(inv.Fixes) > 0 {
		inv.AppliedFix = -1 // not applied yet
	}
	return inv, true
}

// bestFix returns the highest-confidence fix and its index, or -1.
func bestFix(fixes []ProposedFix) (ProposedFix, int) {
	best := -1
	for i, f := range fixes {
		if f.Confidence < 0 || f.Confidence > 1 || len(f.Deltas) == 0 {
			continue // malformed fix, treat as absent
		}
		if best < 0 || f.Confidence > fixes[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return ProposedFix{}, -1
	}
	return fixes[best], best
}

// applyFix applies a fix's deltas, then re-derives checkpoints to confirm the
// targeted discrepancy shrank and nothing new appeared. A fix that fails
// mid-way or worsens state is reverted delta by delta.
func (r *Reconciler) applyFix(d Discrepancy, fix ProposedFix) bool {
	applier := NewApplier(r.ledger, r.log)

	before, _ := r.scan()
	var inverses []TransactionDelta
	revert := func() {
		for i := len(inverses) - 1; i >= 0; i-- {
			if err := applier.Revert(inverses[i]); err != nil {
				// The ledger is now in a state the applier cannot undo.
				panic(fmt.Sprintf("cannot revert delta while rolling back fix: %v", err))
			}
		}
	}

	for _, delta := range fix.Deltas {
		inverse, err := applier.Apply(delta)
		if err != nil {
			r.log.Warn().Err(err).Str("discrepancy", d.ID).Msg("delta failed, rolling back fix")
			revert()
			return false
		}
		if inverse.Op != "" {
			inverses = append(inverses, inverse)
		}
	}

	after, _ := r.scan()
	if worsened(d, before, after) {
		r.log.Warn().Str("discrepancy", d.ID).Msg("fix worsened state, reverting")
		revert()
		return false
	}
	r.log.Info().Str("discrepancy", d.ID).Str("fix", fix.Description).Msg("fix applied")
	return true
}

// worsened reports whether the targeted discrepancy failed to shrink or a new
// discrepancy appeared after applying a fix.
func worsened(target Discrepancy, before, after []Discrepancy) bool {
	targetAbs := target.Amount.Decimal().Abs()
	for _, d := range after {
		if d.Kind == target.Kind && overlap(d.Rows, target.Rows) {
			if d.Amount.Decimal().Abs().GreaterThanOrEqual(targetAbs) {
				return true // did not shrink
			}
		}
	}
	return len(after) > len(before)
}

func overlap(a, b []int) bool {
	set := make(map[int]struct{}, len(a))
	for _, x := range a {
		set[x] = struct{}{}
	}
	for _, y := range b {
		if _, ok := set[y]; ok {
			return true
		}
	}
	return false
}
