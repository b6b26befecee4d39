package port

import (
	"context"
	"io"
	"time"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/valueobject"
	"github.com/bibbank/fraudscore/pkg/events"
)

// Classifier is a loaded binary classifier. Implementations must be safe for
// concurrent use and must not mutate their input.
type Classifier interface {
	// PredictProba returns one [P(legit), P(fraud)] row per input row.
	PredictProba(ctx context.Context, matrix [][]float64) ([][]float64, error)
}

// ReadinessProber is implemented by classifiers that depend on a remote
// model server.
type ReadinessProber interface {
	Ready(ctx context.Context) error
}

// Scaler is a fitted per-column numeric transform applied before the classifier.
type Scaler interface {
	// TransformNamed transforms matrix whose columns are labelled by columns.
	TransformNamed(columns []string, matrix [][]float64) ([][]float64, error)

	// TransformArray transforms matrix positionally.
	TransformArray(matrix [][]float64) ([][]float64, error)
}

// ResultCache is the single-slot store holding the most recent bulk output.
// Put replaces whatever was stored; concurrent writers race and the last one wins.
type ResultCache interface {
	Put(ctx context.Context, entry model.CachedTable) error

	// Latest returns model.ErrNoCacheAvailable when nothing has been stored
	// since the process started.
	Latest(ctx context.Context) (model.CachedTable, error)
}

// TableCodec reads and writes delimited tables.
type TableCodec interface {
	// Decode returns model.ErrUnsupportedFormat when r is not a delimited table.
	Decode(r io.Reader) (model.Table, error)
	Encode(w io.Writer, t model.Table) error
	Extension() string
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// ScoreRecorder receives scoring telemetry.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, source string, label valueobject.Label, elapsed time.Duration)
	RecordBulk(ctx context.Context, rows, flagged int, elapsed time.Duration)
}
