package service

import (
	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/port"
)

// FeaturePolicy prepares a validated feature matrix for the classifier. The
// policy is chosen once when the engine is built.
type FeaturePolicy interface {
	Name() string
	Prepare(matrix [][]float64) ([][]float64, error)
}

// RawFeaturePolicy feeds features to the classifier unchanged. This is the
// policy the shipped model was trained against.
type RawFeaturePolicy struct{}

func (RawFeaturePolicy) Name() string { return "raw" }

func (RawFeaturePolicy) Prepare(matrix [][]float64) ([][]float64, error) {
	return matrix, nil
}

// ScaledFeaturePolicy applies a fitted scaler, trying the column-named
// transform first and falling back to the positional one.
type ScaledFeaturePolicy struct {
	scaler port.Scaler
}

// NewScaledFeaturePolicy creates a ScaledFeaturePolicy around scaler.
func NewScaledFeaturePolicy(scaler port.Scaler) *ScaledFeaturePolicy {
	return &ScaledFeaturePolicy{scaler: scaler}
}

func (p *ScaledFeaturePolicy) Name() string { return "scaled" }

func (p *ScaledFeaturePolicy) Prepare(matrix [][]float64) ([][]float64, error) {
	out, namedErr := p.scaler.TransformNamed(model.OrderedFields(), matrix)
	if namedErr == nil {
		return out, nil
	}
	out, arrayErr := p.scaler.TransformArray(matrix)
	if arrayErr == nil {
		return out, nil
	}
	return nil, errorf(model.ErrScalingFailure, "named transform: %v; array transform: %v", namedErr, arrayErr)
}
