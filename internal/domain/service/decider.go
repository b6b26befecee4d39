package service

import (
	"math"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/valueobject"
)

// DefaultThreshold is the fraud decision cutoff. It favours recall on a
// heavily imbalanced positive class and must not drift towards 0.5.
const DefaultThreshold = 0.20

// Decide returns LabelFraud iff probability >= threshold.
func Decide(probability, threshold float64) valueobject.Label {
	if probability >= threshold {
		return valueobject.LabelFraud
	}
	return valueobject.LabelLegit
}

// Decider applies DefaultThreshold with a range check on the probability.
type Decider struct {
	threshold float64
}

// NewDecider creates a Decider using DefaultThreshold.
func NewDecider() *Decider {
	return &Decider{threshold: DefaultThreshold}
}

// Threshold returns the cutoff in use.
func (d *Decider) Threshold() float64 {
	return d.threshold
}

// Decide labels probability, rejecting values outside [0, 1].
func (d *Decider) Decide(probability float64) (valueobject.Label, error) {
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return 0, errorf(model.ErrOutOfRange, "%v", probability)
	}
	return Decide(probability, d.threshold), nil
}
