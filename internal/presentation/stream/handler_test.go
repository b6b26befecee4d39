package stream_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/application/usecase"
	"github.com/bibbank/fraudscore/internal/domain/event"
	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/port"
	"github.com/bibbank/fraudscore/internal/domain/service"
	"github.com/bibbank/fraudscore/internal/infrastructure/metrics"
	"github.com/bibbank/fraudscore/internal/presentation/stream"
	pkgkafka "github.com/bibbank/fraudscore/pkg/kafka"
	"github.com/bibbank/fraudscore/pkg/events"
	"github.com/bibbank/fraudscore/pkg/observability"
)

// --- Mock implementations ---

type amountClassifier struct{ err error }

func (c amountClassifier) PredictProba(_ context.Context, matrix [][]float64) ([][]float64, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		p := min(row[model.FieldIndex("Amount")]/1000, 1)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (m *mockPublisher) Publish(_ context.Context, evts ...events.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evts...)
	return nil
}

func (m *mockPublisher) completed(t *testing.T) []event.ScoreCompleted {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.ScoreCompleted
	for _, e := range m.events {
		if sc, ok := e.(event.ScoreCompleted); ok {
			out = append(out, sc)
		}
	}
	return out
}

// --- Helpers ---

func newHandler(t *testing.T, classifier port.Classifier) (*stream.Handler, *mockPublisher) {
	t.Helper()
	logger := observability.NopLogger()
	recorder, err := metrics.NewRecorder(noop.NewMeterProvider())
	require.NoError(t, err)

	pub := &mockPublisher{}
	engine := service.NewScoringEngine(classifier, nil)
	uc := usecase.NewScoreTransaction(service.NewTransactionScorer(engine), pub, recorder, logger)
	return stream.NewHandler(uc, logger), pub
}

// --- Tests ---

func TestHandle_ScoresAndPublishes(t *testing.T) {
	h, pub := newHandler(t, amountClassifier{})

	err := h.Handle(context.Background(), pkgkafka.Message{
		Key:   []byte("tx-42"),
		Value: []byte(`{"transaction_id": "tx-42", "features": {"Amount": 640, "V4": 2.1}}`),
	})
	require.NoError(t, err)

	completed := pub.completed(t)
	require.Len(t, completed, 1)
	assert.Equal(t, "tx-42", completed[0].TransactionID)
	assert.Equal(t, dto.SourceStream, completed[0].Source)
	assert.Equal(t, 1, completed[0].Prediction)
	assert.Equal(t, 0.64, completed[0].Probability)
}

func TestHandle_TransactionIDFromKey(t *testing.T) {
	h, pub := newHandler(t, amountClassifier{})

	err := h.Handle(context.Background(), pkgkafka.Message{
		Key:   []byte("tx-from-key"),
		Value: []byte(`{"features": {"Amount": 10}}`),
	})
	require.NoError(t, err)

	completed := pub.completed(t)
	require.Len(t, completed, 1)
	assert.Equal(t, "tx-from-key", completed[0].TransactionID)
	assert.Equal(t, 0, completed[0].Prediction)
}

func TestHandle_DropsUnscorableRecords(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "malformed json", value: `{"features": [`},
		{name: "non-numeric feature", value: `{"features": {"V9": "n/a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, pub := newHandler(t, amountClassifier{})
			err := h.Handle(context.Background(), pkgkafka.Message{Value: []byte(tt.value)})
			assert.NoError(t, err)
			assert.Empty(t, pub.completed(t))
		})
	}
}

func TestHandle_ReturnsTransientFailures(t *testing.T) {
	h, pub := newHandler(t, amountClassifier{err: errors.New("inference timeout")})

	err := h.Handle(context.Background(), pkgkafka.Message{
		Value: []byte(`{"transaction_id": "tx-7", "features": {"Amount": 1}}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tx-7")
	assert.Empty(t, pub.completed(t))
}
