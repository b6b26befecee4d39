package service

import (
	"context"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/valueobject"
)

// TransactionScorer runs the single-record pipeline: vectorize, score, decide
// and attach the top features.
type TransactionScorer struct {
	vectorizer *FeatureVectorizer
	engine     *ScoringEngine
	decider    *Decider
}

// NewTransactionScorer creates a TransactionScorer over engine.
func NewTransactionScorer(engine *ScoringEngine) *TransactionScorer {
	return &TransactionScorer{
		vectorizer: NewFeatureVectorizer(),
		engine:     engine,
		decider:    NewDecider(),
	}
}

// ScoreOne scores a single transaction record.
func (s *TransactionScorer) ScoreOne(ctx context.Context, record model.TransactionRecord) (model.ScoreResult, error) {
	vec, err := s.vectorizer.VectorizeOne(record)
	if err != nil {
		return model.ScoreResult{}, err
	}

	p, err := s.engine.ScoreOne(ctx, vec)
	if err != nil {
		return model.ScoreResult{}, err
	}

	label, err := s.decider.Decide(p)
	if err != nil {
		return model.ScoreResult{}, err
	}

	return model.ScoreResult{
		Prediction:  label,
		Probability: p,
		RiskBand:    valueobject.RiskBandFromProbability(p),
		TopFeatures: TopFeatures(vec, TopFeatureCount),
	}, nil
}
