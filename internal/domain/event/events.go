package event

import (
	"github.com/google/uuid"

	"github.com/bibbank/fraudscore/pkg/events"
)

const (
	// EventTypeScoreCompleted is emitted for every single-transaction score.
	EventTypeScoreCompleted = "fraud.score.completed"

	// EventTypeFraudDetected is emitted when a single transaction is labelled fraud.
	EventTypeFraudDetected = "fraud.fraud.detected"

	// EventTypeBatchScored is emitted when a bulk table has been scored and cached.
	EventTypeBatchScored = "fraud.batch.scored"
)

// ScoreCompleted is published after a transaction has been scored.
type ScoreCompleted struct {
	events.BaseEvent
	TransactionID string  `json:"transaction_id,omitempty"`
	Source        string  `json:"source"`
	Prediction    int     `json:"prediction"`
	Probability   float64 `json:"probability"`
	RiskBand      string  `json:"risk_band"`
}

// NewScoreCompleted creates a ScoreCompleted event for scoring run scoreID.
func NewScoreCompleted(scoreID uuid.UUID, transactionID, source string, prediction int, probability float64, band string) ScoreCompleted {
	return ScoreCompleted{
		BaseEvent:     events.NewBaseEvent(EventTypeScoreCompleted, scoreID),
		TransactionID: transactionID,
		Source:        source,
		Prediction:    prediction,
		Probability:   probability,
		RiskBand:      band,
	}
}

// FraudDetected is published when a transaction crosses the decision threshold.
type FraudDetected struct {
	events.BaseEvent
	TransactionID string   `json:"transaction_id,omitempty"`
	Probability   float64  `json:"probability"`
	TopFeatures   []string `json:"top_features"`
}

// NewFraudDetected creates a FraudDetected event.
func NewFraudDetected(scoreID uuid.UUID, transactionID string, probability float64, topFeatures []string) FraudDetected {
	return FraudDetected{
		BaseEvent:     events.NewBaseEvent(EventTypeFraudDetected, scoreID),
		TransactionID: transactionID,
		Probability:   probability,
		TopFeatures:   topFeatures,
	}
}

// BatchScored is published after a bulk table has been scored. The
// aggregate ID is the cache handle of the stored result.
type BatchScored struct {
	events.BaseEvent
	Rows    int `json:"rows"`
	Flagged int `json:"flagged"`
}

// NewBatchScored creates a BatchScored event.
func NewBatchScored(handle uuid.UUID, rows, flagged int) BatchScored {
	return BatchScored{
		BaseEvent: events.NewBaseEvent(EventTypeBatchScored, handle),
		Rows:      rows,
		Flagged:   flagged,
	}
}
