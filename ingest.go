package cascade

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadRows ingests a CSV export into SourceRows under the account's field
// mapping. When the mapping is empty it is auto-detected from the header row.
// Rows are assigned file and batch ordinals in input order; batch ordinals
// continue from start, so rows pooled from several exports keep distinct
// ordinals. Blank lines and disclaimer trailers (rows with no mapped value
// at all) are skipped.
func ReadRows(r io.Reader, cfg AccountConfig, start int) ([]SourceRow, FieldMapping, error) {
	cfg = cfg.withDefaults()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // broker exports pad or truncate trailing columns
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, FieldMapping{}, fmt.Errorf("could not read header row: %w", err)
	}
	mapping := cfg.Mapping
	if mapping.IsZero() {
		mapping, err = DetectMapping(header)
		if err != nil {
			return nil, FieldMapping{}, fmt.Errorf("could not detect field mapping: %w", err)
		}
	}

	// Index header columns once.
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}

	var rows []SourceRow
	fileOrdinal := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, mapping, fmt.Errorf("could not read record %d: %w", fileOrdinal+1, err)
		}
		fileOrdinal++

		raw := make(map[string]string, len(cols))
		empty := true
		for i, v := range record {
			if i >= len(cols) {
				break
			}
			v = strings.TrimSpace(v)
			raw[cols[i]] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}

		rows = append(rows, MapRow(raw, mapping, fileOrdinal, start+len(rows), cfg.Currency))
	}
	return rows, mapping, nil
}
