package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/port"
	"github.com/bibbank/fraudscore/internal/domain/valueobject"
)

const (
	// PredictionColumn and ProbabilityColumn are appended to every bulk output.
	PredictionColumn  = "prediction"
	ProbabilityColumn = "probability"
)

// BulkScorer scores whole tables and keeps the latest output in a ResultCache.
type BulkScorer struct {
	vectorizer *FeatureVectorizer
	engine     *ScoringEngine
	decider    *Decider
	codec      port.TableCodec
	cache      port.ResultCache
	now        func() time.Time
}

// NewBulkScorer creates a BulkScorer. The cache is owned by the caller so
// independent scorers can share or isolate their last result.
func NewBulkScorer(engine *ScoringEngine, codec port.TableCodec, cache port.ResultCache) *BulkScorer {
	return &BulkScorer{
		vectorizer: NewFeatureVectorizer(),
		engine:     engine,
		decider:    NewDecider(),
		codec:      codec,
		cache:      cache,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ScoreUpload decodes an uploaded file and scores it. Files whose name does
// not carry the codec's extension are rejected before reading.
func (b *BulkScorer) ScoreUpload(ctx context.Context, filename string, r io.Reader) (model.BulkResult, error) {
	if !strings.EqualFold(filepath.Ext(filename), b.codec.Extension()) {
		return model.BulkResult{}, errorf(model.ErrUnsupportedFormat, "%q is not a %s file", filename, b.codec.Extension())
	}
	table, err := b.codec.Decode(r)
	if err != nil {
		return model.BulkResult{}, err
	}
	return b.ScoreTable(ctx, table)
}

// ScoreTable scores every row of table and overwrites the cached result.
// A single invalid row fails the whole call.
func (b *BulkScorer) ScoreTable(ctx context.Context, table model.Table) (model.BulkResult, error) {
	matrix, err := b.vectorizer.VectorizeBatch(table)
	if err != nil {
		return model.BulkResult{}, err
	}

	proba, err := b.engine.Score(ctx, matrix)
	if err != nil {
		return model.BulkResult{}, err
	}

	scores := make([]model.RowScore, len(proba))
	flagged := 0
	for i, p := range proba {
		label, err := b.decider.Decide(p)
		if err != nil {
			return model.BulkResult{}, fmt.Errorf("row %d: %w", i, err)
		}
		if label.IsFraud() {
			flagged++
		}
		scores[i] = model.RowScore{Prediction: label, Probability: p}
	}

	out := annotate(table, scores)

	var buf bytes.Buffer
	if err := b.codec.Encode(&buf, out); err != nil {
		return model.BulkResult{}, fmt.Errorf("failed to encode bulk result: %w", err)
	}

	handle := model.NewCacheHandle()
	if err := b.cache.Put(ctx, model.CachedTable{
		Handle:    handle,
		Data:      buf.Bytes(),
		Rows:      len(out.Rows),
		CreatedAt: b.now(),
	}); err != nil {
		return model.BulkResult{}, fmt.Errorf("failed to cache bulk result: %w", err)
	}

	return model.BulkResult{
		Handle:  handle,
		Table:   out,
		Scores:  scores,
		Flagged: flagged,
	}, nil
}

// FetchLastCache returns the most recent bulk output. A non-zero handle must
// match it; a superseded handle reports ErrNoCacheAvailable.
func (b *BulkScorer) FetchLastCache(ctx context.Context, handle model.CacheHandle) (model.CachedTable, error) {
	entry, err := b.cache.Latest(ctx)
	if err != nil {
		return model.CachedTable{}, err
	}
	if !handle.IsZero() && entry.Handle != handle {
		return model.CachedTable{}, errorf(model.ErrNoCacheAvailable, "handle %s has been superseded", handle)
	}
	return entry, nil
}

// annotate builds the output table: the input columns in their original
// order followed by the prediction and probability columns. Schema columns
// zero-filled for scoring are not added. Input columns already named like a
// result column are replaced so the result columns are always last.
func annotate(in model.Table, scores []model.RowScore) model.Table {
	keep := make([]int, 0, len(in.Columns))
	columns := make([]string, 0, len(in.Columns)+2)
	for i, c := range in.Columns {
		if c == PredictionColumn || c == ProbabilityColumn {
			continue
		}
		keep = append(keep, i)
		columns = append(columns, c)
	}
	columns = append(columns, PredictionColumn, ProbabilityColumn)

	rows := make([][]string, len(in.Rows))
	for r, cells := range in.Rows {
		row := make([]string, 0, len(columns))
		for _, i := range keep {
			row = append(row, cells[i])
		}
		row = append(row, formatLabel(scores[r].Prediction), formatProbability(scores[r].Probability))
		rows[r] = row
	}
	return model.Table{Columns: columns, Rows: rows}
}

func formatLabel(l valueobject.Label) string {
	return strconv.Itoa(l.Int())
}

func formatProbability(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}
