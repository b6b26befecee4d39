package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fraudscore/internal/domain/valueobject"
)

// TopFeature is one entry of the explainability aid attached to single scores.
// It ranks raw input magnitude and is not a model attribution.
type TopFeature struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// ScoreResult is the outcome of scoring one transaction.
type ScoreResult struct {
	Prediction  valueobject.Label
	Probability float64
	RiskBand    valueobject.RiskBand
	TopFeatures []TopFeature
}

// RowScore is the outcome for one row of a bulk table.
type RowScore struct {
	Prediction  valueobject.Label
	Probability float64
}

// CacheHandle identifies a cached bulk result.
type CacheHandle uuid.UUID

// NewCacheHandle returns a random handle.
func NewCacheHandle() CacheHandle {
	return CacheHandle(uuid.New())
}

// ParseCacheHandle parses the textual form produced by String.
func ParseCacheHandle(s string) (CacheHandle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CacheHandle{}, err
	}
	return CacheHandle(id), nil
}

func (h CacheHandle) String() string { return uuid.UUID(h).String() }

// IsZero reports whether the handle is unset.
func (h CacheHandle) IsZero() bool { return uuid.UUID(h) == uuid.Nil }

// CachedTable is the serialized output of the most recent bulk call.
type CachedTable struct {
	Handle    CacheHandle
	Data      []byte
	Rows      int
	CreatedAt time.Time
}

// BulkResult is returned by a bulk scoring call. Scores[i] belongs to Table.Rows[i].
type BulkResult struct {
	Handle  CacheHandle
	Table   Table
	Scores  []RowScore
	Flagged int
}
