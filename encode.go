package cascade

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// The ledger persists as JSONL: one record per line, identified by a "kind"
// discriminator. It is human readable, diffable, and trivial to merge.
const (
	kindAccount     = "account"
	kindTransaction = "transaction"
	kindExclusion   = "exclusion"
)

// EncodeTransaction writes a single transaction as one JSONL line.
func EncodeTransaction(w io.Writer, t *Transaction) error {
	var ow jsonObjectWriter
	ow.Append("kind", kindTransaction)
	ow.EmbedFrom(t)
	data, err := ow.MarshalJSON()
	if err != nil {
		return fmt.Errorf("could not encode transaction %s: %w", t.ID, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// EncodeLedger writes the whole ledger in canonical form: the account line,
// transactions in display order, then exclusions in ordinal order.
func EncodeLedger(w io.Writer, l *Ledger) error {
	var header jsonObjectWriter
	header.Append("kind", kindAccount)
	header.Append("name", l.Account())
	data, err := header.MarshalJSON()
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}

	for _, t := range l.Transactions() {
		if err := EncodeTransaction(w, t); err != nil {
			return err
		}
	}

	excluded := l.Excluded()
	ordinals := make([]int, 0, len(excluded))
	for ord := range excluded {
		ordinals = append(ordinals, ord)
	}
	slices.Sort(ordinals)
	for _, ord := range ordinals {
		var ow jsonObjectWriter
		ow.Append("kind", kindExclusion)
		ow.Append("row", ord)
		ow.Optional("reason", excluded[ord])
		data, err := ow.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// DecodeLedger reads a JSONL stream written by EncodeLedger.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger("")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var identifier struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(line, &identifier); err != nil {
			return nil, fmt.Errorf("could not identify record in line %q: %w", string(line), err)
		}

		switch identifier.Kind {
		case kindAccount:
			var rec struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, err
			}
			ledger.account = rec.Name
		case kindTransaction:
			var t Transaction
			if err := json.Unmarshal(line, &t); err != nil {
				return nil, fmt.Errorf("could not decode transaction line %q: %w", string(line), err)
			}
			ledger.Append(&t)
		case kindExclusion:
			var rec struct {
				Row    int    `json:"row"`
				Reason string `json:"reason"`
			}
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, err
			}
			ledger.Exclude(rec.Reason, rec.Row)
		default:
			return nil, fmt.Errorf("unknown record kind %q", identifier.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read ledger stream: %w", err)
	}
	return ledger, nil
}

// LoadLedger reads a ledger file. A missing file yields an empty ledger for
// the named account, so a first run needs no setup.
func LoadLedger(path, account string) (*Ledger, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewLedger(account), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open ledger file %q: %w", path, err)
	}
	defer f.Close()

	ledger, err := DecodeLedger(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode ledger file %q: %w", path, err)
	}
	if ledger.account == "" {
		ledger.account = account
	}
	return ledger, nil
}

// SaveLedger writes the ledger atomically: a temp file in the same directory,
// then rename over the target.
func SaveLedger(path string, l *Ledger) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("could not create temp ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeLedger(tmp, l); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
