package cascade

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
)

// Ledger holds one account's persisted transactions and its excluded rows.
//
// Transactions are kept in display order: date first, then the smallest
// contributing row ordinal.
type Ledger struct {
	account      string
	transactions []*Transaction
	excluded     map[int]string // row ordinal -> exclusion reason
}

// NewLedger creates an empty ledger for an account.
func NewLedger(account string) *Ledger {
	return &Ledger{
		account:  account,
		excluded: make(map[int]string),
	}
}

// Account returns the account name this ledger belongs to.
func (l *Ledger) Account() string { return l.account }

// Append adds transactions and restores display order.
func (l *Ledger) Append(txns ...*Transaction) {
	l.transactions = append(l.transactions, txns...)
	l.stableSort()
}

// stableSort sorts by date then minimum contributing row ordinal. The sort is
// stable so equal keys keep their relative order.
func (l *Ledger) stableSort() {
	sort.SliceStable(l.transactions, func(i, j int) bool {
		a, b := l.transactions[i], l.transactions[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.MinRowOrdinal() < b.MinRowOrdinal()
	})
}

// Transactions returns the transactions in display order. The slice is shared;
// callers must not mutate it.
func (l *Ledger) Transactions() []*Transaction { return l.transactions }

// Get returns the transaction with the given id.
func (l *Ledger) Get(id string) (*Transaction, bool) {
	for _, t := range l.transactions {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Remove deletes the transaction with the given id. Rows it covered return to
// the gap pool. It reports whether a transaction was removed.
func (l *Ledger) Remove(id string) bool {
	for i, t := range l.transactions {
		if t.ID == id {
			l.transactions = slices.Delete(l.transactions, i, i+1)
			return true
		}
	}
	return false
}

// Exclude marks rows as non-transactional without deleting their data.
func (l *Ledger) Exclude(reason string, ordinals ...int) {
	for _, ord := range ordinals {
		l.excluded[ord] = reason
	}
}

// Unexclude removes the exclusion marks from the given rows.
func (l *Ledger) Unexclude(ordinals ...int) {
	for _, ord := range ordinals {
		delete(l.excluded, ord)
	}
}

// Excluded returns the excluded row ordinals and their reasons.
func (l *Ledger) Excluded() map[int]string {
	return maps.Clone(l.excluded)
}

// IsExcluded reports whether a row ordinal is excluded.
func (l *Ledger) IsExcluded(ordinal int) bool {
	_, ok := l.excluded[ordinal]
	return ok
}

// RebuildRegistry re-resolves asset references on every asset leg, used
// after decoding a persisted ledger where asset pointers are not stored.
func (l *Ledger) RebuildRegistry(registry *AssetRegistry) {
	for _, t := range l.transactions {
		for i := range t.Entries {
			if t.Entries[i].Class == AssetAccount {
				t.Entries[i].Asset = registry.Resolve(t.Entries[i].Account, "")
			}
		}
	}
}

// accountLocks holds the per-account advisory locks. Only one reconciliation
// run may mutate a given account at a time.
var accountLocks sync.Map // account name -> *sync.Mutex

// LockAccount acquires the advisory lock for an account for the duration of a
// reconciliation run. It fails immediately when another run holds the lock.
// The returned function releases it.
func LockAccount(account string) (release func(), err error) {
	v, _ := accountLocks.LoadOrStore(account, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, fmt.Errorf("account %q is locked by another reconciliation run", account)
	}
	return mu.Unlock, nil
}
