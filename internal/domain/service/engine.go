package service

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/port"
)

// TopFeatureCount is the number of entries returned by TopFeatures for single scores.
const TopFeatureCount = 3

// ScoringEngine owns the loaded classifier and its feature policy. It is
// immutable after construction and safe for concurrent use.
type ScoringEngine struct {
	classifier port.Classifier
	policy     FeaturePolicy
}

// NewScoringEngine creates a ScoringEngine. A nil policy means RawFeaturePolicy.
func NewScoringEngine(classifier port.Classifier, policy FeaturePolicy) *ScoringEngine {
	if policy == nil {
		policy = RawFeaturePolicy{}
	}
	return &ScoringEngine{classifier: classifier, policy: policy}
}

// Policy returns the name of the active feature policy.
func (e *ScoringEngine) Policy() string {
	return e.policy.Name()
}

// Ready probes the classifier when it is served remotely. Local artifacts
// are loaded at startup and always ready.
func (e *ScoringEngine) Ready(ctx context.Context) error {
	if p, ok := e.classifier.(port.ReadinessProber); ok {
		return p.Ready(ctx)
	}
	return nil
}

// Score returns the fraud probability for each row of an (n, 30) matrix.
func (e *ScoringEngine) Score(ctx context.Context, matrix [][]float64) ([]float64, error) {
	if len(matrix) == 0 {
		return nil, errorf(model.ErrShapeError, "empty feature matrix")
	}
	for i, row := range matrix {
		if len(row) != model.FieldCount {
			return nil, errorf(model.ErrShapeError, "row %d has %d columns, want %d", i, len(row), model.FieldCount)
		}
	}

	prepared, err := e.policy.Prepare(matrix)
	if err != nil {
		return nil, err
	}

	proba, err := e.classifier.PredictProba(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to run classifier: %w", err)
	}
	if len(proba) != len(matrix) {
		return nil, errorf(model.ErrShapeError, "classifier returned %d rows for %d inputs", len(proba), len(matrix))
	}

	out := make([]float64, len(proba))
	for i, row := range proba {
		if len(row) < 2 {
			return nil, errorf(model.ErrShapeError, "classifier row %d has %d classes, want 2", i, len(row))
		}
		p := row[1]
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, errorf(model.ErrOutOfRange, "row %d probability %v", i, p)
		}
		out[i] = p
	}
	return out, nil
}

// ScoreOne scores a single vector as a matrix of exactly one row.
func (e *ScoringEngine) ScoreOne(ctx context.Context, vec model.FeatureVector) (float64, error) {
	proba, err := e.Score(ctx, [][]float64{vec.Row()})
	if err != nil {
		return 0, err
	}
	return proba[0], nil
}

// TopFeatures ranks the raw vector values by magnitude, largest first, and
// returns the first k. Equal magnitudes keep schema order.
func TopFeatures(vec model.FeatureVector, k int) []model.TopFeature {
	ranked := make([]model.TopFeature, model.FieldCount)
	for i, v := range vec {
		ranked[i] = model.TopFeature{Feature: model.FieldName(i), Value: v}
	}
	slices.SortStableFunc(ranked, func(a, b model.TopFeature) int {
		return cmp.Compare(math.Abs(b.Value), math.Abs(a.Value))
	})
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}
