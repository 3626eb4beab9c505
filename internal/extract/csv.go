package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// utf8BOM is stripped from the start of text and CSV files exported by spreadsheet tools.
var utf8BOM = []byte("\xef\xbb\xbf")

// extractCSV parses comma-separated rows. Fields are kept as written, so an
// empty trailing answer cell stays an empty cell; only all-blank rows are dropped.
func extractCSV(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	out := rows[:0]
	for _, row := range rows {
		if !blankRow(row) {
			out = append(out, row)
		}
	}
	return out, nil
}
