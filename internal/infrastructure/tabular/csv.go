// Package tabular reads and writes the delimited tables accepted by bulk scoring.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

const utf8BOM = "\ufeff"

// CSVCodec implements port.TableCodec for comma separated files with a header row.
type CSVCodec struct {
	comma rune
}

// CSVOption configures a CSVCodec.
type CSVOption func(*CSVCodec)

// WithComma sets the field delimiter.
func WithComma(r rune) CSVOption {
	return func(c *CSVCodec) { c.comma = r }
}

// NewCSVCodec creates a CSVCodec.
func NewCSVCodec(opts ...CSVOption) *CSVCodec {
	c := &CSVCodec{comma: ','}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extension returns ".csv".
func (c *CSVCodec) Extension() string { return ".csv" }

// Decode parses r into a table. Rows may have differing lengths; rectangularity
// is checked by model.Table.Validate so it is reported as a schema mismatch.
func (c *CSVCodec) Decode(r io.Reader) (model.Table, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return model.Table{}, fmt.Errorf("%w: failed to read upload: %v", model.ErrUnsupportedFormat, err)
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return model.Table{}, fmt.Errorf("%w: upload is binary", model.ErrUnsupportedFormat)
	}

	reader := csv.NewReader(br)
	reader.Comma = c.comma
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return model.Table{}, fmt.Errorf("%w: upload is empty", model.ErrUnsupportedFormat)
	}
	if err != nil {
		return model.Table{}, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		columns[i] = strings.TrimSpace(name)
	}

	table := model.Table{Columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Table{}, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// Encode writes t with a header row.
func (c *CSVCodec) Encode(w io.Writer, t model.Table) error {
	writer := csv.NewWriter(w)
	writer.Comma = c.comma

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
