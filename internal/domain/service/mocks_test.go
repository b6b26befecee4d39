package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// --- Mock implementations ---

// stubClassifier returns a fixed fraud probability for every row.
type stubClassifier struct {
	p float64

	mu    sync.Mutex
	calls [][][]float64
}

func (c *stubClassifier) PredictProba(_ context.Context, matrix [][]float64) ([][]float64, error) {
	c.mu.Lock()
	c.calls = append(c.calls, matrix)
	c.mu.Unlock()

	out := make([][]float64, len(matrix))
	for i := range matrix {
		out[i] = []float64{1 - c.p, c.p}
	}
	return out, nil
}

// funcClassifier derives the probability from each row.
type funcClassifier func(row []float64) float64

func (f funcClassifier) PredictProba(_ context.Context, matrix [][]float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		p := f(row)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

// rawClassifier returns a canned response.
type rawClassifier struct {
	out [][]float64
	err error
}

func (c rawClassifier) PredictProba(context.Context, [][]float64) ([][]float64, error) {
	return c.out, c.err
}

// remoteClassifier reports readiness like a model server would.
type remoteClassifier struct {
	rawClassifier
	readyErr error
}

func (c remoteClassifier) Ready(context.Context) error { return c.readyErr }

type mockScaler struct {
	namedErr error
	arrayErr error
	named    int
	array    int
}

func (s *mockScaler) TransformNamed(_ []string, m [][]float64) ([][]float64, error) {
	s.named++
	if s.namedErr != nil {
		return nil, s.namedErr
	}
	return shift(m, 100), nil
}

func (s *mockScaler) TransformArray(m [][]float64) ([][]float64, error) {
	s.array++
	if s.arrayErr != nil {
		return nil, s.arrayErr
	}
	return shift(m, 200), nil
}

func shift(m [][]float64, by float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v + by
		}
	}
	return out
}

// memoryCache is a minimal single-slot ResultCache.
type memoryCache struct {
	mu     sync.Mutex
	entry  *model.CachedTable
	putErr error
}

func (c *memoryCache) Put(_ context.Context, entry model.CachedTable) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &entry
	return nil
}

func (c *memoryCache) Latest(context.Context) (model.CachedTable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return model.CachedTable{}, model.ErrNoCacheAvailable
	}
	return *c.entry, nil
}

// lineCodec is a naive comma codec without quoting.
type lineCodec struct{}

func (lineCodec) Extension() string { return ".csv" }

func (lineCodec) Decode(r io.Reader) (model.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Table{}, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return model.Table{}, fmt.Errorf("%w: empty", model.ErrUnsupportedFormat)
	}
	t := model.Table{Columns: strings.Split(lines[0], ",")}
	for _, l := range lines[1:] {
		t.Rows = append(t.Rows, strings.Split(l, ","))
	}
	return t, nil
}

func (lineCodec) Encode(w io.Writer, t model.Table) error {
	if _, err := fmt.Fprintln(w, strings.Join(t.Columns, ",")); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return nil
}

var errBoom = errors.New("boom")
