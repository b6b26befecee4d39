package grpc

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/application/usecase"
	"github.com/bibbank/fraudscore/internal/domain/model"
)

// Compile-time assertion that ScoringServiceHandler implements ScoringServiceServer.
var _ ScoringServiceServer = (*ScoringServiceHandler)(nil)

// ScoringServiceHandler implements the gRPC ScoringServiceServer interface.
type ScoringServiceHandler struct {
	UnimplementedScoringServiceServer
	scoreTx    *usecase.ScoreTransaction
	scoreBatch *usecase.ScoreBatch
	fetchBatch *usecase.FetchLastBatch
	logger     *slog.Logger
}

// NewScoringServiceHandler creates a new gRPC handler.
func NewScoringServiceHandler(
	scoreTx *usecase.ScoreTransaction,
	scoreBatch *usecase.ScoreBatch,
	fetchBatch *usecase.FetchLastBatch,
	logger *slog.Logger,
) *ScoringServiceHandler {
	return &ScoringServiceHandler{
		scoreTx:    scoreTx,
		scoreBatch: scoreBatch,
		fetchBatch: fetchBatch,
		logger:     logger,
	}
}

// Wire message types.

// ScoreRequest carries one sparse transaction record.
type ScoreRequest struct {
	TransactionID string         `json:"transaction_id"`
	Features      map[string]any `json:"features"`
}

// TopFeatureMsg is one ranked raw feature value.
type TopFeatureMsg struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// ScoreResponse is the outcome of scoring one transaction.
type ScoreResponse struct {
	ScoreID       string           `json:"score_id"`
	TransactionID string           `json:"transaction_id"`
	Prediction    int32            `json:"prediction"`
	Probability   float64          `json:"probability"`
	RiskBand      string           `json:"risk_band"`
	TopFeatures   []*TopFeatureMsg `json:"top_features"`
}

// ScoreBatchRequest carries an uploaded table. Content is base64 on the wire.
type ScoreBatchRequest struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// RowResultMsg is the score of one uploaded row.
type RowResultMsg struct {
	Prediction  int32   `json:"prediction"`
	Probability float64 `json:"probability"`
}

// ScoreBatchResponse holds per-row scores and the cache handle of the output.
type ScoreBatchResponse struct {
	Results     []*RowResultMsg `json:"results"`
	CacheHandle string          `json:"cache_handle"`
	Rows        int32           `json:"rows"`
	Flagged     int32           `json:"flagged"`
}

// FetchLastBatchRequest optionally names the expected cache handle.
type FetchLastBatchRequest struct {
	Handle string `json:"handle"`
}

// FetchLastBatchResponse is the serialized output of the latest bulk call.
type FetchLastBatchResponse struct {
	Handle    string `json:"handle"`
	Filename  string `json:"filename"`
	Content   []byte `json:"content"`
	Rows      int32  `json:"rows"`
	CreatedAt string `json:"created_at"`
}

// Score handles a single-transaction scoring request.
func (h *ScoringServiceHandler) Score(ctx context.Context, req *ScoreRequest) (*ScoreResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	result, err := h.scoreTx.Execute(ctx, dto.ScoreTransactionRequest{
		Features:      req.Features,
		TransactionID: req.TransactionID,
		Source:        dto.SourceGRPC,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "score", err)
	}

	top := make([]*TopFeatureMsg, len(result.TopFeatures))
	for i, f := range result.TopFeatures {
		top[i] = &TopFeatureMsg{Feature: f.Feature, Value: f.Value}
	}
	return &ScoreResponse{
		ScoreID:       result.ScoreID.String(),
		TransactionID: result.TransactionID,
		Prediction:    int32(result.Prediction),
		Probability:   result.Probability,
		RiskBand:      result.RiskBand,
		TopFeatures:   top,
	}, nil
}

// ScoreBatch handles a bulk scoring request.
func (h *ScoringServiceHandler) ScoreBatch(ctx context.Context, req *ScoreBatchRequest) (*ScoreBatchResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if len(req.Content) == 0 {
		return nil, status.Error(codes.InvalidArgument, "content is required")
	}

	result, err := h.scoreBatch.Execute(ctx, dto.ScoreBatchRequest{
		Content:  bytes.NewReader(req.Content),
		Filename: req.Filename,
		Source:   dto.SourceGRPC,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "score batch", err)
	}

	rows := make([]*RowResultMsg, len(result.Results))
	for i, r := range result.Results {
		rows[i] = &RowResultMsg{Prediction: int32(r.Prediction), Probability: r.Probability}
	}
	return &ScoreBatchResponse{
		Results:     rows,
		CacheHandle: result.CacheHandle,
		Rows:        int32(result.Rows),
		Flagged:     int32(result.Flagged),
	}, nil
}

// FetchLastBatch returns the output of the most recent bulk call.
func (h *ScoringServiceHandler) FetchLastBatch(ctx context.Context, req *FetchLastBatchRequest) (*FetchLastBatchResponse, error) {
	if req == nil {
		req = &FetchLastBatchRequest{}
	}

	file, err := h.fetchBatch.Execute(ctx, req.Handle)
	if err != nil {
		return nil, h.toStatus(ctx, "fetch last batch", err)
	}

	return &FetchLastBatchResponse{
		Handle:    file.Handle,
		Filename:  file.Filename,
		Content:   file.Data,
		Rows:      int32(file.Rows),
		CreatedAt: file.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// toStatus maps domain errors to gRPC status codes. Unexpected failures are
// logged and reported as Internal without detail.
func (h *ScoringServiceHandler) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidFeatureValue),
		errors.Is(err, model.ErrSchemaMismatch),
		errors.Is(err, model.ErrUnsupportedFormat):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrNoCacheAvailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		h.logger.ErrorContext(ctx, "failed to "+op, slog.String("error", err.Error()))
		return status.Error(codes.Internal, "internal error")
	}
}
