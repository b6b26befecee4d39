package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// FeatureVectorizer turns sparse records and tables into schema-ordered
// feature rows. Absent fields become 0 and unknown fields are ignored.
type FeatureVectorizer struct{}

// NewFeatureVectorizer creates a FeatureVectorizer.
func NewFeatureVectorizer() *FeatureVectorizer {
	return &FeatureVectorizer{}
}

// VectorizeOne builds the feature vector for a single record.
func (v *FeatureVectorizer) VectorizeOne(record model.TransactionRecord) (model.FeatureVector, error) {
	var vec model.FeatureVector
	for i, name := range model.OrderedFields() {
		raw, ok := record[name]
		if !ok {
			continue
		}
		f, ok := coerce(raw)
		if !ok {
			return model.FeatureVector{}, &model.FeatureValueError{Row: -1, Field: name, Value: raw}
		}
		vec[i] = f
	}
	return vec, nil
}

// VectorizeBatch builds an (n, 30) matrix from a table. A schema column that
// is absent from the header is zero for every row; columns outside the schema
// are skipped. An empty cell in a present column is a missing value and
// becomes NaN, which the classifier resolves.
func (v *FeatureVectorizer) VectorizeBatch(table model.Table) ([][]float64, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	// source[i] is the table column feeding schema field i, or -1.
	var source [model.FieldCount]int
	for i, name := range model.OrderedFields() {
		source[i] = table.ColumnIndex(name)
	}

	matrix := make([][]float64, len(table.Rows))
	for r, cells := range table.Rows {
		row := make([]float64, model.FieldCount)
		for i, col := range source {
			if col < 0 {
				continue
			}
			cell := strings.TrimSpace(cells[col])
			if cell == "" {
				row[i] = math.NaN()
				continue
			}
			f, ok := parseFinite(cell)
			if !ok {
				return nil, &model.FeatureValueError{Row: r, Field: model.FieldName(i), Value: cells[col]}
			}
			row[i] = f
		}
		matrix[r] = row
	}
	return matrix, nil
}

func coerce(raw any) (float64, bool) {
	var f float64
	switch val := raw.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		return parseFinite(val.String())
	case string:
		return parseFinite(strings.TrimSpace(val))
	default:
		return 0, false
	}
	return f, !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
