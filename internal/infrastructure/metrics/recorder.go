// Package metrics records scoring telemetry through OpenTelemetry instruments.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/fraudscore/internal/domain/valueobject"
)

const scopeName = "github.com/bibbank/fraudscore"

// Recorder implements port.ScoreRecorder.
type Recorder struct {
	predictions metric.Int64Counter
	bulkRows    metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewRecorder creates the scoring instruments on provider.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(scopeName)

	predictions, err := meter.Int64Counter("fraudscore_predictions",
		metric.WithDescription("Transactions scored, by source and label."),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create predictions counter: %w", err)
	}

	bulkRows, err := meter.Int64Counter("fraudscore_bulk_rows",
		metric.WithDescription("Rows scored by bulk requests, by label."),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk rows counter: %w", err)
	}

	duration, err := meter.Float64Histogram("fraudscore_score_duration",
		metric.WithDescription("Time spent scoring a request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &Recorder{predictions: predictions, bulkRows: bulkRows, duration: duration}, nil
}

// RecordScore counts one single-transaction score.
func (r *Recorder) RecordScore(ctx context.Context, source string, label valueobject.Label, elapsed time.Duration) {
	r.predictions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Int("prediction", label.Int()),
	))
	r.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("kind", "single")))
}

// RecordBulk counts the rows of one bulk request.
func (r *Recorder) RecordBulk(ctx context.Context, rows, flagged int, elapsed time.Duration) {
	r.bulkRows.Add(ctx, int64(rows-flagged), metric.WithAttributes(attribute.Int("prediction", valueobject.LabelLegit.Int())))
	r.bulkRows.Add(ctx, int64(flagged), metric.WithAttributes(attribute.Int("prediction", valueobject.LabelFraud.Int())))
	r.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("kind", "bulk")))
}
