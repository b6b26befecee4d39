package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/service"
)

// ResultFilename is the download name of a cached bulk output.
const ResultFilename = "fraud_results.csv"

// FetchLastBatch is the use case for downloading the latest bulk output.
type FetchLastBatch struct {
	bulk   *service.BulkScorer
	logger *slog.Logger
}

// NewFetchLastBatch creates a new FetchLastBatch use case.
func NewFetchLastBatch(bulk *service.BulkScorer, logger *slog.Logger) *FetchLastBatch {
	return &FetchLastBatch{bulk: bulk, logger: logger}
}

// Execute returns the latest cached output. A non-empty handle must name it.
func (uc *FetchLastBatch) Execute(ctx context.Context, handle string) (dto.BatchFile, error) {
	var h model.CacheHandle
	if handle != "" {
		parsed, err := model.ParseCacheHandle(handle)
		if err != nil {
			return dto.BatchFile{}, fmt.Errorf("%w: malformed handle %q", model.ErrNoCacheAvailable, handle)
		}
		h = parsed
	}

	entry, err := uc.bulk.FetchLastCache(ctx, h)
	if err != nil {
		return dto.BatchFile{}, err
	}

	uc.logger.DebugContext(ctx, "serving cached batch",
		slog.String("cache_handle", entry.Handle.String()),
		slog.Int("rows", entry.Rows),
	)
	return dto.FromCachedTable(entry, ResultFilename), nil
}
