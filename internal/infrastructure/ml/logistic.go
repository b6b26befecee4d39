package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// LogisticModel is a linear classifier: P = sigmoid(bias + w . x).
type LogisticModel struct {
	bias    float64
	weights [model.FieldCount]float64
}

// LoadLogisticJSON reads {"bias": b, "weights": {"V1": w1, ...}} from path.
// Schema fields without a weight contribute nothing; unknown names are rejected.
func LoadLogisticJSON(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logistic model: %w", err)
	}
	var raw struct {
		Bias    float64            `json:"bias"`
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode logistic model: %w", err)
	}
	return NewLogisticModel(raw.Bias, raw.Weights)
}

// NewLogisticModel builds a LogisticModel from named weights.
func NewLogisticModel(bias float64, weights map[string]float64) (*LogisticModel, error) {
	m := &LogisticModel{bias: bias}
	for name, w := range weights {
		i := model.FieldIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("weight for unknown feature %q", name)
		}
		m.weights[i] = w
	}
	return m, nil
}

// PredictProba implements port.Classifier. Missing (NaN) features
// contribute nothing to the margin.
func (m *LogisticModel) PredictProba(ctx context.Context, matrix [][]float64) ([][]float64, error) {
	for i, row := range matrix {
		if len(row) != model.FieldCount {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), model.FieldCount)
		}
	}
	return predictRows(ctx, matrix, func(row []float64) float64 {
		z := m.bias
		for i, w := range m.weights {
			if math.IsNaN(row[i]) {
				continue
			}
			z += w * row[i]
		}
		return sigmoid(z)
	})
}
