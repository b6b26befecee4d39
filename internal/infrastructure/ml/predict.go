package ml

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelRowThreshold is the batch size above which rows are scored on
// several goroutines.
const parallelRowThreshold = 256

func sigmoid(margin float64) float64 {
	return 1 / (1 + math.Exp(-margin))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// predictRows applies fn to every row and returns [1-p, p] pairs in input
// order. Large batches are split into contiguous chunks scored concurrently.
func predictRows(ctx context.Context, matrix [][]float64, fn func(row []float64) float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	score := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := fn(matrix[i])
			out[i] = []float64{1 - p, p}
		}
	}

	if len(matrix) < parallelRowThreshold {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score(0, len(matrix))
		return out, nil
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(matrix) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(matrix); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(matrix))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score(lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
