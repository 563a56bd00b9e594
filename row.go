package cascade

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SourceRow is one ingested record from an account export. The raw field map
// is kept verbatim; the standardized view is populated once at ingestion so
// that downstream components never probe raw column names again.
type SourceRow struct {
	FileOrdinal int               `json:"fileOrdinal"` // position within the source file
	Ordinal     int               `json:"ordinal"`     // position within the import batch
	Raw         map[string]string `json:"raw,omitempty"`

	Date           Date     `json:"date"`
	Action         string   `json:"action"`
	Symbol         string   `json:"symbol,omitempty"`
	Description    string   `json:"description,omitempty"`
	Quantity       Quantity `json:"quantity,omitempty"`
	Amount         Money    `json:"amount,omitempty"`
	Price          Money    `json:"price,omitempty"`
	SettlementDate Date     `json:"settlementDate,omitempty"`
	Balance        Money    `json:"balance,omitempty"`
	HasBalance     bool     `json:"hasBalance,omitempty"`
}

// FieldMapping names the raw columns that carry each standardized field.
// Date and Action are required; the rest are optional.
type FieldMapping struct {
	Date           string `json:"date"`
	Action         string `json:"action"`
	Symbol         string `json:"symbol,omitempty"`
	Description    string `json:"description,omitempty"`
	Quantity       string `json:"quantity,omitempty"`
	Amount         string `json:"amount,omitempty"`
	Price          string `json:"price,omitempty"`
	SettlementDate string `json:"settlementDate,omitempty"`
	Balance        string `json:"balance,omitempty"`
}

// IsZero reports whether no column has been mapped yet.
func (m FieldMapping) IsZero() bool { return m == FieldMapping{} }

// headerAliases ranks known column names per standardized field. Matching is
// case-insensitive, exact before substring, first alias wins, so more
// specific aliases must come first.
var headerAliases = map[string][]string{
	"date":           {"run date", "trade date", "transaction date", "date"},
	"action":         {"action", "transaction type", "type", "activity"},
	"symbol":         {"symbol", "ticker", "security id"},
	"description":    {"description", "security description", "details"},
	"quantity":       {"quantity", "shares", "units"},
	"amount":         {"amount ($)", "amount", "net amount", "value"},
	"price":          {"price ($)", "price", "unit price"},
	"settlementDate": {"settlement date", "settle date"},
	"balance":        {"cash balance", "account balance", "ending balance", "running balance", "balance"},
}

// DetectMapping infers a FieldMapping from a header row by ranked match
// against known aliases. For each field, exact header matches are tried
// before substring matches, and a header claimed by one field is never
// offered to another: "Transaction Date" must not satisfy the "action"
// alias through its own substring. An error is returned when the required
// date or action columns cannot be located.
func DetectMapping(headers []string) (FieldMapping, error) {
	clean := make([]string, 0, len(headers))
	for _, h := range headers {
		clean = append(clean, strings.TrimSpace(h))
	}
	claimed := make(map[string]bool)

	pick := func(field string) string {
		for _, exact := range []bool{true, false} {
			for _, alias := range headerAliases[field] {
				for _, h := range clean {
					if h == "" || claimed[h] {
						continue
					}
					lower := strings.ToLower(h)
					if lower == alias || (!exact && strings.Contains(lower, alias)) {
						claimed[h] = true
						return h
					}
				}
			}
		}
		return ""
	}

	m := FieldMapping{
		Date:           pick("date"),
		Action:         pick("action"),
		Symbol:         pick("symbol"),
		Description:    pick("description"),
		Quantity:       pick("quantity"),
		Amount:         pick("amount"),
		Price:          pick("price"),
		SettlementDate: pick("settlementDate"),
		Balance:        pick("balance"),
	}
	if m.Date == "" {
		return m, fmt.Errorf("could not locate a date column in headers %v", headers)
	}
	if m.Action == "" {
		return m, fmt.Errorf("could not locate an action column in headers %v", headers)
	}
	return m, nil
}

// MapRow builds the standardized view of one raw record under a mapping.
// A missing or unparseable date is not an error here: the zero date is kept
// and reported later by the builder, so the batch retains total coverage.
func MapRow(raw map[string]string, m FieldMapping, fileOrdinal, ordinal int, currency string) SourceRow {
	row := SourceRow{
		FileOrdinal: fileOrdinal,
		Ordinal:     ordinal,
		Raw:         raw,
		Action:      strings.TrimSpace(raw[m.Action]),
		Symbol:      strings.ToUpper(strings.TrimSpace(raw[m.Symbol])),
		Description: strings.TrimSpace(raw[m.Description]),
	}

	if s := strings.TrimSpace(raw[m.Date]); s != "" {
		if d, err := ParseDate(s); err == nil {
			row.Date = d
		}
	}
	if s := strings.TrimSpace(raw[m.SettlementDate]); s != "" {
		if d, err := ParseDate(s); err == nil {
			row.SettlementDate = d
		}
	}
	if v, ok := parseAmount(raw[m.Quantity]); ok {
		row.Quantity = Q(v)
	}
	if v, ok := parseAmount(raw[m.Amount]); ok {
		row.Amount = M(v, currency)
	}
	if v, ok := parseAmount(raw[m.Price]); ok {
		row.Price = M(v, currency)
	}
	if v, ok := parseAmount(raw[m.Balance]); ok {
		row.Balance = M(v, currency)
		row.HasBalance = true
	}
	return row
}

// parseAmount reads a decimal out of broker-export notation: currency signs,
// thousands separators, and accounting-style parentheses for negatives.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" {
		return decimal.Zero, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}
