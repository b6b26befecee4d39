package ml

import (
	"context"
	"log/slog"
)

// StubClassifier returns the same fraud probability for every row. It stands
// in for a real artifact in development and tests.
type StubClassifier struct {
	probability float64
	logger      *slog.Logger
}

// NewStubClassifier creates a StubClassifier answering probability.
func NewStubClassifier(probability float64, logger *slog.Logger) *StubClassifier {
	return &StubClassifier{probability: probability, logger: logger}
}

// PredictProba implements port.Classifier.
func (c *StubClassifier) PredictProba(ctx context.Context, matrix [][]float64) ([][]float64, error) {
	c.logger.DebugContext(ctx, "stub classifier prediction requested",
		slog.Int("rows", len(matrix)),
	)

	out := make([][]float64, len(matrix))
	for i := range matrix {
		out[i] = []float64{1 - c.probability, c.probability}
	}
	return out, nil
}
