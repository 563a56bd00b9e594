// Package cascade turns raw financial institution exports into a reconciled,
// balanced double-entry ledger. It is designed to be local-first and
// auditable: every source row is accounted for, every correction is recorded
// and reversible, and the only ground truth is the institution's own stated
// running balance.
//
// The core functionalities include:
//   - Row Ingestion: Reading institution CSV exports with automatic
//     field-mapping detection over known header aliases, normalizing dates,
//     amounts and balances into standardized source rows.
//   - Settlement Grouping: Joining multi-row settlement patterns back into
//     single transaction units under a per-account policy, so one economic
//     event is booked exactly once.
//   - Transaction Building: A rule table that turns transaction units into
//     balanced journal entries (buys, sells, dividends, interest, fees,
//     transfers), always producing a balanced transaction or a diagnostic,
//     never a silent skip.
//   - Coverage and Checkpoints: A row-to-transaction coverage index and a
//     running-balance checkpoint series, comparing the ledger's computed
//     balance against every stated reading.
//   - Reconciliation: A bounded, confidence-gated fix loop that asks an
//     external oracle to investigate discrepancies, applies only
//     high-confidence fixes through reversible deltas, and reports everything
//     it did and declined to do.
//   - Data Persistence: Encoding and decoding the ledger to and from a
//     human-readable, version-controllable JSONL file.
//
// This package serves as the foundational logic for the `cale` command-line
// tool.
package cascade
