package service_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/service"
)

func TestVectorizeOne(t *testing.T) {
	v := service.NewFeatureVectorizer()

	t.Run("empty record yields zeros", func(t *testing.T) {
		vec, err := v.VectorizeOne(model.TransactionRecord{})
		require.NoError(t, err)
		assert.Equal(t, model.FeatureVector{}, vec)
	})

	t.Run("values land in schema positions", func(t *testing.T) {
		vec, err := v.VectorizeOne(model.TransactionRecord{
			"Amount": 149.62,
			"V17":    -2.5,
			"Time":   10,
			"Extra":  "ignored",
		})
		require.NoError(t, err)
		assert.Equal(t, 149.62, vec[29])
		assert.Equal(t, -2.5, vec[17])
		assert.Equal(t, 10.0, vec[0])
		assert.Equal(t, 0.0, vec[1])
	})

	t.Run("numeric strings and json numbers coerce", func(t *testing.T) {
		vec, err := v.VectorizeOne(model.TransactionRecord{
			"V1": " 1.5 ",
			"V2": json.Number("-3e2"),
			"V3": int64(7),
			"V4": float32(0.5),
		})
		require.NoError(t, err)
		assert.Equal(t, 1.5, vec[1])
		assert.Equal(t, -300.0, vec[2])
		assert.Equal(t, 7.0, vec[3])
		assert.Equal(t, 0.5, vec[4])
	})

	invalid := []struct {
		name  string
		value any
	}{
		{name: "non-numeric string", value: "abc"},
		{name: "empty string", value: ""},
		{name: "null", value: nil},
		{name: "bool", value: true},
		{name: "object", value: map[string]any{"x": 1}},
		{name: "nan", value: math.NaN()},
		{name: "inf string", value: "Inf"},
	}
	for _, tt := range invalid {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := v.VectorizeOne(model.TransactionRecord{"V5": tt.value})
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrInvalidFeatureValue)

			var fve *model.FeatureValueError
			require.True(t, errors.As(err, &fve))
			assert.Equal(t, "V5", fve.Field)
			assert.Equal(t, -1, fve.Row)
		})
	}
}

func TestVectorizeOne_KeyOrderIndependent(t *testing.T) {
	v := service.NewFeatureVectorizer()
	a := model.TransactionRecord{}
	b := model.TransactionRecord{}
	fields := model.OrderedFields()
	for i, name := range fields {
		a[name] = float64(i)
	}
	for i := len(fields) - 1; i >= 0; i-- {
		b[fields[i]] = float64(i)
	}

	va, err := v.VectorizeOne(a)
	require.NoError(t, err)
	vb, err := v.VectorizeOne(b)
	require.NoError(t, err)

	assert.Equal(t, va, vb)
	for i := range va {
		assert.Equal(t, float64(i), va[i])
	}
}

func TestVectorizeBatch(t *testing.T) {
	v := service.NewFeatureVectorizer()

	t.Run("missing schema column is zero for every row", func(t *testing.T) {
		table := model.Table{
			Columns: []string{"note", "Amount", "V1"},
			Rows: [][]string{
				{"a", "10", "1"},
				{"b", "20", ""},
				{"c", "30", "3"},
			},
		}
		matrix, err := v.VectorizeBatch(table)
		require.NoError(t, err)
		require.Len(t, matrix, 3)
		for i, row := range matrix {
			require.Len(t, row, model.FieldCount)
			assert.Equal(t, 0.0, row[17], "row %d V17", i)
			assert.Equal(t, float64(10*(i+1)), row[29])
		}
		assert.Equal(t, 1.0, matrix[0][1])
		assert.True(t, math.IsNaN(matrix[1][1]), "empty cell is a missing value")
		assert.Equal(t, 0.0, matrix[1][17], "absent column stays zero")
	})

	t.Run("bad cell reports its row", func(t *testing.T) {
		table := model.Table{
			Columns: []string{"Amount"},
			Rows:    [][]string{{"1"}, {"1"}, {"x"}},
		}
		_, err := v.VectorizeBatch(table)
		var fve *model.FeatureValueError
		require.True(t, errors.As(err, &fve))
		assert.Equal(t, 2, fve.Row)
		assert.Equal(t, "Amount", fve.Field)
		assert.ErrorIs(t, err, model.ErrInvalidFeatureValue)
	})

	t.Run("non-schema columns are never parsed", func(t *testing.T) {
		table := model.Table{Columns: []string{"comment"}, Rows: [][]string{{"not a number"}}}
		matrix, err := v.VectorizeBatch(table)
		require.NoError(t, err)
		assert.Equal(t, make([]float64, model.FieldCount), matrix[0])
	})

	t.Run("empty table", func(t *testing.T) {
		_, err := v.VectorizeBatch(model.Table{Columns: []string{"Time"}})
		assert.ErrorIs(t, err, model.ErrSchemaMismatch)
	})

	t.Run("ragged table", func(t *testing.T) {
		_, err := v.VectorizeBatch(model.Table{Columns: []string{"Time", "V1"}, Rows: [][]string{{"1"}}})
		assert.ErrorIs(t, err, model.ErrSchemaMismatch)
	})
}
