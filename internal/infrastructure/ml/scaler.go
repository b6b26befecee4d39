package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// StandardScaler applies (x - mean) / scale per column, as fitted offline.
type StandardScaler struct {
	featureNames []string
	mean         []float64
	scale        []float64
}

// LoadStandardScaler reads {"feature_names_in": [...], "mean": [...], "scale": [...]}.
func LoadStandardScaler(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scaler: %w", err)
	}
	var raw struct {
		FeatureNames []string  `json:"feature_names_in"`
		Mean         []float64 `json:"mean"`
		Scale        []float64 `json:"scale"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode scaler: %w", err)
	}
	return NewStandardScaler(raw.FeatureNames, raw.Mean, raw.Scale)
}

// NewStandardScaler validates and builds a StandardScaler. featureNames may be empty.
func NewStandardScaler(featureNames []string, mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 || len(mean) != len(scale) {
		return nil, fmt.Errorf("scaler has %d means and %d scales", len(mean), len(scale))
	}
	if len(featureNames) > 0 && len(featureNames) != len(mean) {
		return nil, fmt.Errorf("scaler has %d feature names for %d columns", len(featureNames), len(mean))
	}
	s := &StandardScaler{
		featureNames: slices.Clone(featureNames),
		mean:         slices.Clone(mean),
		scale:        slices.Clone(scale),
	}
	for i, v := range s.scale {
		if v == 0 {
			s.scale[i] = 1
		}
	}
	return s, nil
}

// TransformNamed requires the fitted feature names to match columns exactly.
func (s *StandardScaler) TransformNamed(columns []string, matrix [][]float64) ([][]float64, error) {
	if len(s.featureNames) == 0 {
		return nil, fmt.Errorf("scaler was fitted without feature names")
	}
	if !slices.Equal(s.featureNames, columns) {
		return nil, fmt.Errorf("feature names %v do not match fitted names %v", columns, s.featureNames)
	}
	return s.TransformArray(matrix)
}

// TransformArray transforms matrix positionally.
func (s *StandardScaler) TransformArray(matrix [][]float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(s.mean) {
			return nil, fmt.Errorf("row %d has %d columns, scaler expects %d", i, len(row), len(s.mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.mean[j]) / s.scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}
