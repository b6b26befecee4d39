package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/valueobject"
	"github.com/bibbank/fraudscore/pkg/events"
)

// --- Mock implementations ---

// amountClassifier returns Amount/1000 as the fraud probability, capped at 1.
type amountClassifier struct{}

func (amountClassifier) PredictProba(_ context.Context, matrix [][]float64) ([][]float64, error) {
	amount := model.FieldIndex("Amount")
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		p := min(row[amount]/1000, 1)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, evts ...events.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, evts...)
	return nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType()
	}
	return out
}

type scoreCall struct {
	source string
	label  valueobject.Label
}

type bulkCall struct {
	rows, flagged int
}

type mockRecorder struct {
	mu     sync.Mutex
	scores []scoreCall
	bulks  []bulkCall
}

func (m *mockRecorder) RecordScore(_ context.Context, source string, label valueobject.Label, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, scoreCall{source: source, label: label})
}

func (m *mockRecorder) RecordBulk(_ context.Context, rows, flagged int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulks = append(m.bulks, bulkCall{rows: rows, flagged: flagged})
}

var errBrokerDown = errors.New("broker down")
