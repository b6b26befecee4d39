// Package stream scores transactions consumed from a Kafka topic.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/application/usecase"
	"github.com/bibbank/fraudscore/internal/domain/model"
	pkgkafka "github.com/bibbank/fraudscore/pkg/kafka"
)

// ScoreRequestMessage is the payload of a scoring request record.
type ScoreRequestMessage struct {
	TransactionID string         `json:"transaction_id"`
	Features      map[string]any `json:"features"`
}

// Handler scores each consumed record. Results leave through the event
// publisher of the ScoreTransaction use case.
type Handler struct {
	scoreTx *usecase.ScoreTransaction
	logger  *slog.Logger
}

// NewHandler creates a new stream Handler.
func NewHandler(scoreTx *usecase.ScoreTransaction, logger *slog.Logger) *Handler {
	return &Handler{scoreTx: scoreTx, logger: logger}
}

// Handle implements pkgkafka.Handler. Records that can never score
// (bad JSON, bad feature values) are logged and acknowledged; any other
// failure is returned so the record stays uncommitted.
func (h *Handler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	var req ScoreRequestMessage
	dec := json.NewDecoder(bytes.NewReader(msg.Value))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "dropping malformed scoring request",
			slog.String("key", string(msg.Key)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if req.TransactionID == "" {
		req.TransactionID = string(msg.Key)
	}

	resp, err := h.scoreTx.Execute(ctx, dto.ScoreTransactionRequest{
		Features:      req.Features,
		TransactionID: req.TransactionID,
		Source:        dto.SourceStream,
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidFeatureValue) {
			h.logger.WarnContext(ctx, "dropping unscorable transaction",
				slog.String("transaction_id", req.TransactionID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return fmt.Errorf("failed to score transaction %s: %w", req.TransactionID, err)
	}

	h.logger.DebugContext(ctx, "scored streamed transaction",
		slog.String("transaction_id", resp.TransactionID),
		slog.Int("prediction", resp.Prediction),
		slog.Float64("probability", resp.Probability),
	)
	return nil
}
