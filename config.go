package cascade

import (
	"encoding/json"
	"fmt"
	"os"
)

// DateBasis selects which date a checkpoint comparison is anchored on.
// Institutions post running balances with varying lag, so this is a
// per-account setting rather than a global convention.
type DateBasis string

const (
	TradeDateBasis      DateBasis = "trade"
	SettlementDateBasis DateBasis = "settlement"
)

// AccountConfig is the per-account institution configuration: how raw columns
// map to standardized fields, which settlement convention the export follows,
// and which instrument stands in for cash in the running balance.
type AccountConfig struct {
	Account           string       `json:"account"`
	Institution       string       `json:"institution,omitempty"`
	Currency          string       `json:"currency,omitempty"`          // defaults to USD
	Mapping           FieldMapping `json:"mapping,omitempty"`           // empty means auto-detect from headers
	SettlementPolicy  string       `json:"settlementPolicy,omitempty"`  // "dual-row" (default) or "none"
	BalanceInstrument string       `json:"balanceInstrument,omitempty"` // e.g. a sweep fund symbol
	DateBasis         DateBasis    `json:"dateBasis,omitempty"`         // defaults to trade
}

// withDefaults returns a copy with unset fields filled in.
func (c AccountConfig) withDefaults() AccountConfig {
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.SettlementPolicy == "" {
		c.SettlementPolicy = "dual-row"
	}
	if c.DateBasis == "" {
		c.DateBasis = TradeDateBasis
	}
	return c
}

// LoadAccountConfig reads an AccountConfig from a JSON file.
func LoadAccountConfig(path string) (AccountConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AccountConfig{}, fmt.Errorf("could not read account config %q: %w", path, err)
	}
	var c AccountConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return AccountConfig{}, fmt.Errorf("could not parse account config %q: %w", path, err)
	}
	return c.withDefaults(), nil
}

// DefaultAccountConfig returns a usable configuration for an unnamed account.
func DefaultAccountConfig() AccountConfig {
	return AccountConfig{Account: "default"}.withDefaults()
}
