package testutil

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// Fixed identifiers for deterministic testing.
var (
	TestInstanceID    = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestTransactionID = "tx-00000000-0000-0000-0000-000000000020"
	TestCreatedAt     = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

// NewRecord returns a full transaction record with every schema field set to
// zero, overridden by vals.
func NewRecord(vals map[string]float64) model.TransactionRecord {
	rec := make(model.TransactionRecord, model.FieldCount)
	for _, name := range model.OrderedFields() {
		rec[name] = 0.0
	}
	for name, v := range vals {
		rec[name] = v
	}
	return rec
}

// NewTable builds a table whose columns are the schema fields minus omit.
// Row i has Amount = amounts[i] and every other cell "0".
func NewTable(amounts []float64, omit ...string) model.Table {
	skip := make(map[string]bool, len(omit))
	for _, name := range omit {
		skip[name] = true
	}

	var columns []string
	for _, name := range model.OrderedFields() {
		if !skip[name] {
			columns = append(columns, name)
		}
	}

	rows := make([][]string, len(amounts))
	for i, amount := range amounts {
		row := make([]string, len(columns))
		for j, name := range columns {
			row[j] = "0"
			if name == "Amount" {
				row[j] = strconv.FormatFloat(amount, 'g', -1, 64)
			}
		}
		rows[i] = row
	}
	return model.Table{Columns: columns, Rows: rows}
}

// NewCSV renders NewTable as comma separated text with a header line.
func NewCSV(amounts []float64, omit ...string) string {
	t := NewTable(amounts, omit...)
	var b strings.Builder
	b.WriteString(strings.Join(t.Columns, ","))
	b.WriteByte('\n')
	for _, row := range t.Rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// NewCachedTable returns a cache entry with a fresh handle.
func NewCachedTable(data string, rows int) model.CachedTable {
	return model.CachedTable{
		Handle:    model.NewCacheHandle(),
		Data:      []byte(data),
		Rows:      rows,
		CreatedAt: TestCreatedAt,
	}
}
