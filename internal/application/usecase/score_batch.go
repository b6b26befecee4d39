package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/domain/event"
	"github.com/bibbank/fraudscore/internal/domain/port"
	"github.com/bibbank/fraudscore/internal/domain/service"
	"github.com/bibbank/fraudscore/pkg/events"
)

// ScoreBatch is the use case for scoring an uploaded table.
type ScoreBatch struct {
	bulk      *service.BulkScorer
	publisher port.EventPublisher
	recorder  port.ScoreRecorder
	logger    *slog.Logger
}

// NewScoreBatch creates a new ScoreBatch use case.
func NewScoreBatch(
	bulk *service.BulkScorer,
	publisher port.EventPublisher,
	recorder port.ScoreRecorder,
	logger *slog.Logger,
) *ScoreBatch {
	return &ScoreBatch{
		bulk:      bulk,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
	}
}

// Execute scores every row of the upload and caches the annotated table.
func (uc *ScoreBatch) Execute(ctx context.Context, req dto.ScoreBatchRequest) (resp dto.BatchResponse, err error) {
	ctx, span := tracer.Start(ctx, "ScoreBatch")
	defer func() { endSpan(span, err) }()

	start := time.Now()
	result, err := uc.bulk.ScoreUpload(ctx, req.Filename, req.Content)
	if err != nil {
		return dto.BatchResponse{}, err
	}
	elapsed := time.Since(start)

	rows := len(result.Scores)
	span.SetAttributes(
		attribute.String("fraudscore.cache_handle", result.Handle.String()),
		attribute.Int("fraudscore.rows", rows),
		attribute.Int("fraudscore.flagged", result.Flagged),
	)
	uc.recorder.RecordBulk(ctx, rows, result.Flagged, elapsed)

	uc.logger.InfoContext(ctx, "batch scored",
		slog.String("source", req.Source),
		slog.String("cache_handle", result.Handle.String()),
		slog.Int("rows", rows),
		slog.Int("flagged", result.Flagged),
		slog.Duration("elapsed", elapsed),
	)

	var collector events.EventCollector
	collector.Record(event.NewBatchScored(uuid.UUID(result.Handle), rows, result.Flagged))
	publish(ctx, uc.publisher, uc.logger, collector.Drain())

	return dto.FromBulkResult(result), nil
}
