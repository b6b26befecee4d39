package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/domain/event"
	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/port"
	"github.com/bibbank/fraudscore/internal/domain/service"
	"github.com/bibbank/fraudscore/pkg/events"
)

// ScoreTransaction is the use case for scoring a single transaction.
type ScoreTransaction struct {
	scorer    *service.TransactionScorer
	publisher port.EventPublisher
	recorder  port.ScoreRecorder
	logger    *slog.Logger
}

// NewScoreTransaction creates a new ScoreTransaction use case.
func NewScoreTransaction(
	scorer *service.TransactionScorer,
	publisher port.EventPublisher,
	recorder port.ScoreRecorder,
	logger *slog.Logger,
) *ScoreTransaction {
	return &ScoreTransaction{
		scorer:    scorer,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
	}
}

// Execute scores the request features, records metrics and publishes events.
// Publishing failures are logged and do not fail the call.
func (uc *ScoreTransaction) Execute(ctx context.Context, req dto.ScoreTransactionRequest) (resp dto.ScoreResponse, err error) {
	ctx, span := tracer.Start(ctx, "ScoreTransaction")
	defer func() { endSpan(span, err) }()

	start := time.Now()
	result, err := uc.scorer.ScoreOne(ctx, model.TransactionRecord(req.Features))
	if err != nil {
		return dto.ScoreResponse{}, err
	}
	elapsed := time.Since(start)

	scoreID := uuid.New()
	span.SetAttributes(
		attribute.String("fraudscore.score_id", scoreID.String()),
		attribute.String("fraudscore.source", req.Source),
		attribute.Int("fraudscore.prediction", result.Prediction.Int()),
		attribute.Float64("fraudscore.probability", result.Probability),
	)
	uc.recorder.RecordScore(ctx, req.Source, result.Prediction, elapsed)

	var collector events.EventCollector
	collector.Record(event.NewScoreCompleted(
		scoreID, req.TransactionID, req.Source,
		result.Prediction.Int(), result.Probability, result.RiskBand.String(),
	))
	if result.Prediction.IsFraud() {
		names := make([]string, len(result.TopFeatures))
		for i, f := range result.TopFeatures {
			names[i] = f.Feature
		}
		collector.Record(event.NewFraudDetected(scoreID, req.TransactionID, result.Probability, names))
		uc.logger.InfoContext(ctx, "transaction flagged as fraud",
			slog.String("score_id", scoreID.String()),
			slog.String("transaction_id", req.TransactionID),
			slog.Float64("probability", result.Probability),
		)
	}
	publish(ctx, uc.publisher, uc.logger, collector.Drain())

	return dto.FromScoreResult(scoreID, req.TransactionID, result), nil
}

func publish(ctx context.Context, publisher port.EventPublisher, logger *slog.Logger, evts []events.DomainEvent) {
	if len(evts) == 0 {
		return
	}
	if err := publisher.Publish(ctx, evts...); err != nil {
		logger.WarnContext(ctx, "failed to publish events",
			slog.Int("count", len(evts)),
			slog.String("error", err.Error()),
		)
	}
}
