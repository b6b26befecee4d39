// Package rest exposes the scoring use cases over HTTP/JSON.
package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/application/usecase"
	"github.com/bibbank/fraudscore/internal/domain/model"
)

const (
	maxJSONBody   = 1 << 20
	multipartMem  = 8 << 20
	uploadField   = "file"
	noCSVDetail   = "No CSV generated yet."
	badCSVDetail  = "Upload a valid CSV file."
	internalError = "internal error"
)

// ScoringHandler serves the prediction endpoints.
type ScoringHandler struct {
	scoreTx        *usecase.ScoreTransaction
	scoreBatch     *usecase.ScoreBatch
	fetchBatch     *usecase.FetchLastBatch
	limiter        *RateLimiter
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewScoringHandler creates a ScoringHandler. Bulk uploads are capped at
// maxUploadBytes and admitted through limiter.
func NewScoringHandler(
	scoreTx *usecase.ScoreTransaction,
	scoreBatch *usecase.ScoreBatch,
	fetchBatch *usecase.FetchLastBatch,
	limiter *RateLimiter,
	maxUploadBytes int64,
	logger *slog.Logger,
) *ScoringHandler {
	return &ScoringHandler{
		scoreTx:        scoreTx,
		scoreBatch:     scoreBatch,
		fetchBatch:     fetchBatch,
		limiter:        limiter,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers the scoring endpoints on mux.
func (h *ScoringHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("POST /bulk_predict", RateLimit(h.limiter, h.BulkPredict))
	mux.HandleFunc("GET "+dto.DownloadPath, h.DownloadLastCSV)
}

// Predict handles POST /predict with a {"features": {...}} body.
func (h *ScoringHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req dto.ScoreTransactionRequest
	if err := readJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Source = dto.SourceREST

	resp, err := h.scoreTx.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// BulkPredict handles POST /bulk_predict with a multipart "file" field.
func (h *ScoringHandler) BulkPredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMem); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeDetail(w, http.StatusBadRequest, "expected a multipart form upload")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("form field %q is required", uploadField))
		return
	}
	defer file.Close()

	resp, err := h.scoreBatch.Execute(r.Context(), dto.ScoreBatchRequest{
		Content:  file,
		Filename: header.Filename,
		Source:   dto.SourceREST,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DownloadLastCSV handles GET /download_last_csv[?handle=].
func (h *ScoringHandler) DownloadLastCSV(w http.ResponseWriter, r *http.Request) {
	file, err := h.fetchBatch.Execute(r.Context(), r.URL.Query().Get("handle"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("X-Cache-Handle", file.Handle)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, bytes.NewReader(file.Data)); err != nil {
		h.logger.WarnContext(r.Context(), "failed to stream cached batch", "error", err)
	}
}

// statusFor maps domain errors to HTTP status codes and client-facing details.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidFeatureValue):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, model.ErrUnsupportedFormat):
		return http.StatusBadRequest, badCSVDetail
	case errors.Is(err, model.ErrSchemaMismatch):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrNoCacheAvailable):
		return http.StatusBadRequest, noCSVDetail
	default:
		return http.StatusInternalServerError, internalError
	}
}

func (h *ScoringHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, detail := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "scoring failed", "path", r.URL.Path, "error", err)
	} else {
		h.logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	writeDetail(w, code, detail)
}

// readJSON decodes a bounded JSON body. Numbers are kept as json.Number so
// feature values reach the vectorizer without float conversion.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeDetail writes a {"detail": msg} error body.
func writeDetail(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, map[string]string{"detail": msg})
}
