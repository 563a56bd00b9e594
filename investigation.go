package cascade

import "context"

// FixImpact is the predicted effect of applying a proposed fix.
type FixImpact struct {
	BalanceChange Money  `json:"balanceChange"`
	Creates       int    `json:"creates"`
	Updates       int    `json:"updates"`
	Deletes       int    `json:"deletes"`
	Excludes      int    `json:"excludes"`
	RiskNote      string `json:"riskNote,omitempty"`
}

// ProposedFix is one corrective edit suggested by the oracle, ranked by
// confidence. Confidence gates what the engine may do with it: at or above
// the auto threshold it is applied, in the hold band it awaits external
// approval, below that it is only recorded.
type ProposedFix struct {
	Description        string             `json:"description"`
	Confidence         float64            `json:"confidence"` // in [0,1]
	Reasoning          string             `json:"reasoning,omitempty"`
	Deltas             []TransactionDelta `json:"deltas"`
	Impact             FixImpact          `json:"impact"`
	SupportingEvidence []string           `json:"supportingEvidence,omitempty"`
	Assumptions        []string           `json:"assumptions,omitempty"`
}

// Investigation is one research pass over a discrepancy: the hypothesis, the
// evidence narrative, the ranked fixes, and which fix (if any) was applied.
type Investigation struct {
	ID          string        `json:"id"`
	Discrepancy string        `json:"discrepancy"` // discrepancy id
	Hypothesis  string        `json:"hypothesis"`
	Evidence    string        `json:"evidence,omitempty"`
	Fixes       []ProposedFix `json:"fixes,omitempty"`
	AppliedFix  int           `json:"appliedFix"` // index into Fixes, -1 when none
}

// OracleRequest is the context window handed to the oracle for one
// discrepancy: the rows and transactions within N days of it, and the
// running-balance series over the same window.
type OracleRequest struct {
	Discrepancy  Discrepancy         `json:"discrepancy"`
	Rows         []SourceRow         `json:"rows"`
	Transactions []*Transaction      `json:"transactions"`
	Balances     []BalanceCheckpoint `json:"balances"`
}

// Oracle produces investigation hypotheses and proposed fixes for a
// discrepancy. The core never generates hypotheses itself; implementations
// live outside the core (see the oracle package). A malformed or empty
// response is "no fix found", never an aborting error.
type Oracle interface {
	Investigate(ctx context.Context, req OracleRequest) (Investigation, error)
}
