package cascade

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// AssetClass is the inferred class of a canonical asset.
type AssetClass string

const (
	EquityAsset      AssetClass = "equity"
	FundAsset        AssetClass = "fund"
	MoneyMarketAsset AssetClass = "money-market"
	UnknownAsset     AssetClass = "unknown"
)

// Asset is a canonical security identity. Two symbols that merely look alike
// (a spot ticker and a fund tracking it, say) are distinct assets; the
// registry never merges them.
type Asset struct {
	Symbol string     `json:"symbol"`
	Name   string     `json:"name,omitempty"`
	Class  AssetClass `json:"class"`
}

// AssetRegistry maps normalized symbols to canonical assets. The mapping is a
// stable bijection for the registry's lifetime: a symbol resolves to the same
// *Asset on every call, including concurrent first creation.
//
// The registry is an explicitly constructed instance rather than process
// state, so isolated test runs and per-account concurrency stay safe.
type AssetRegistry struct {
	mu     sync.Mutex
	assets map[string]*Asset
}

// NewAssetRegistry creates an empty registry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{assets: make(map[string]*Asset)}
}

// NormalizeSymbol canonicalizes a raw symbol: trimmed, upper-cased.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Resolve returns the canonical Asset for a symbol, creating it on first use.
// Creation is compare-and-create under the registry lock so racing workers
// observe a single identity.
func (r *AssetRegistry) Resolve(symbol, name string) *Asset {
	norm := NormalizeSymbol(symbol)
	if norm == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assets[norm]; ok {
		return a
	}
	a := &Asset{Symbol: norm, Name: name, Class: inferClass(norm)}
	r.assets[norm] = a
	return a
}

// Lookup returns the registered asset for a symbol without creating one.
func (r *AssetRegistry) Lookup(symbol string) (*Asset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[NormalizeSymbol(symbol)]
	return a, ok
}

// All returns the registered assets sorted by symbol.
func (r *AssetRegistry) All() []*Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	symbols := slices.Sorted(maps.Keys(r.assets))
	all := make([]*Asset, 0, len(symbols))
	for _, s := range symbols {
		all = append(all, r.assets[s])
	}
	return all
}

// inferClass guesses the asset class from US symbol conventions: five-letter
// symbols ending in XX are money market funds, ending in X are mutual funds.
func inferClass(symbol string) AssetClass {
	if len(symbol) == 5 {
		if strings.HasSuffix(symbol, "XX") {
			return MoneyMarketAsset
		}
		if strings.HasSuffix(symbol, "X") {
			return FundAsset
		}
	}
	if len(symbol) >= 1 && len(symbol) <= 5 {
		return EquityAsset
	}
	return UnknownAsset
}
