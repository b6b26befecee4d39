package dto

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// Scoring sources recorded on events and metrics.
const (
	SourceREST   = "rest"
	SourceGRPC   = "grpc"
	SourceStream = "stream"
	SourceCLI    = "cli"
)

// DownloadPath is where the latest bulk output can be fetched over REST.
const DownloadPath = "/download_last_csv"

// ScoreTransactionRequest is the input DTO for the ScoreTransaction use case.
type ScoreTransactionRequest struct {
	Features      map[string]any `json:"features"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Source        string         `json:"-"`
}

// TopFeature is one ranked raw input value.
type TopFeature struct {
	Feature string  `json:"feature" yaml:"feature"`
	Value   float64 `json:"value" yaml:"value"`
}

// ScoreResponse is the output DTO returned after scoring a transaction.
type ScoreResponse struct {
	ScoreID       uuid.UUID    `json:"score_id" yaml:"score_id"`
	TransactionID string       `json:"transaction_id,omitempty" yaml:"transaction_id,omitempty"`
	Prediction    int          `json:"prediction" yaml:"prediction"`
	Probability   float64      `json:"probability" yaml:"probability"`
	RiskBand      string       `json:"risk_band" yaml:"risk_band"`
	TopFeatures   []TopFeature `json:"top_features" yaml:"top_features"`
}

// FromScoreResult maps a domain score to the response DTO.
func FromScoreResult(scoreID uuid.UUID, transactionID string, r model.ScoreResult) ScoreResponse {
	top := make([]TopFeature, len(r.TopFeatures))
	for i, f := range r.TopFeatures {
		top[i] = TopFeature{Feature: f.Feature, Value: f.Value}
	}
	return ScoreResponse{
		ScoreID:       scoreID,
		TransactionID: transactionID,
		Prediction:    r.Prediction.Int(),
		Probability:   r.Probability,
		RiskBand:      r.RiskBand.String(),
		TopFeatures:   top,
	}
}

// ScoreBatchRequest is the input DTO for the ScoreBatch use case.
type ScoreBatchRequest struct {
	Content  io.Reader
	Filename string
	Source   string
}

// RowResult is the score of one bulk row.
type RowResult struct {
	Prediction  int     `json:"prediction" yaml:"prediction"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// BatchResponse is the output DTO returned after scoring a table.
type BatchResponse struct {
	Results     []RowResult `json:"results" yaml:"results"`
	CSVDownload string      `json:"csv_download" yaml:"csv_download"`
	CacheHandle string      `json:"cache_handle" yaml:"cache_handle"`
	Rows        int         `json:"rows" yaml:"rows"`
	Flagged     int         `json:"flagged" yaml:"flagged"`
}

// FromBulkResult maps a bulk result to the response DTO.
func FromBulkResult(r model.BulkResult) BatchResponse {
	results := make([]RowResult, len(r.Scores))
	for i, s := range r.Scores {
		results[i] = RowResult{Prediction: s.Prediction.Int(), Probability: s.Probability}
	}
	return BatchResponse{
		Results:     results,
		CSVDownload: DownloadPath,
		CacheHandle: r.Handle.String(),
		Rows:        len(r.Scores),
		Flagged:     r.Flagged,
	}
}

// BatchFile is the serialized output of a previous bulk call.
type BatchFile struct {
	CreatedAt time.Time
	Handle    string
	Filename  string
	Data      []byte
	Rows      int
}

// FromCachedTable maps a cache entry to the download DTO.
func FromCachedTable(c model.CachedTable, filename string) BatchFile {
	return BatchFile{
		CreatedAt: c.CreatedAt,
		Handle:    c.Handle.String(),
		Filename:  filename,
		Data:      c.Data,
		Rows:      c.Rows,
	}
}
