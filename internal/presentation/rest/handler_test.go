package rest_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/application/usecase"
	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/domain/port"
	"github.com/bibbank/fraudscore/internal/domain/service"
	"github.com/bibbank/fraudscore/internal/infrastructure/cache"
	"github.com/bibbank/fraudscore/internal/infrastructure/messaging"
	"github.com/bibbank/fraudscore/internal/infrastructure/metrics"
	"github.com/bibbank/fraudscore/internal/infrastructure/ml"
	"github.com/bibbank/fraudscore/internal/infrastructure/tabular"
	"github.com/bibbank/fraudscore/internal/presentation/rest"
	"github.com/bibbank/fraudscore/pkg/observability"
	"github.com/bibbank/fraudscore/pkg/testutil"
)

type serverOptions struct {
	classifier port.Classifier
	limiter    *rest.RateLimiter
	maxUpload  int64
	checks     map[string]rest.ReadinessCheck
	metrics    http.Handler
}

func newServer(t *testing.T, opts serverOptions) http.Handler {
	t.Helper()
	logger := observability.NopLogger()

	if opts.classifier == nil {
		opts.classifier = ml.NewStubClassifier(0.85, logger)
	}
	if opts.limiter == nil {
		opts.limiter = rest.NewRateLimiter(1000, 1000)
	}
	if opts.maxUpload == 0 {
		opts.maxUpload = 1 << 20
	}

	recorder, err := metrics.NewRecorder(noop.NewMeterProvider())
	require.NoError(t, err)
	publisher := messaging.NewLogPublisher(logger)

	engine := service.NewScoringEngine(opts.classifier, nil)
	bulk := service.NewBulkScorer(engine, tabular.NewCSVCodec(), cache.NewMemoryCache())

	scoring := rest.NewScoringHandler(
		usecase.NewScoreTransaction(service.NewTransactionScorer(engine), publisher, recorder, logger),
		usecase.NewScoreBatch(bulk, publisher, recorder, logger),
		usecase.NewFetchLastBatch(bulk, logger),
		opts.limiter,
		opts.maxUpload,
		logger,
	)
	health := rest.NewHealthHandler("fraudscore", opts.checks, logger)
	return rest.NewRouter(scoring, health, opts.metrics, logger)
}

// amountClassifier returns Amount/1000 as the fraud probability.
type amountClassifier struct{}

func (amountClassifier) PredictProba(_ context.Context, matrix [][]float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		p := min(row[model.FieldIndex("Amount")]/1000, 1)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func predictRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/bulk_predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["detail"]
}

func TestPredict(t *testing.T) {
	h := newServer(t, serverOptions{})

	rec := do(t, h, predictRequest(`{"features": {"Time": 10, "V1": -3.5, "V14": "-7.25", "Amount": 149.62, "Merchant": "ignored"}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp dto.ScoreResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Prediction)
	assert.Equal(t, 0.85, resp.Probability)
	assert.Equal(t, "HIGH", resp.RiskBand)
	assert.Equal(t, []dto.TopFeature{
		{Feature: "Amount", Value: 149.62},
		{Feature: "Time", Value: 10},
		{Feature: "V14", Value: -7.25},
	}, resp.TopFeatures)
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{name: "non-numeric string", body: `{"features": {"V3": "abc"}}`, wantStatus: http.StatusUnprocessableEntity, wantDetail: `"V3"`},
		{name: "boolean", body: `{"features": {"Amount": true}}`, wantStatus: http.StatusUnprocessableEntity, wantDetail: `"Amount"`},
		{name: "null", body: `{"features": {"V1": null}}`, wantStatus: http.StatusUnprocessableEntity, wantDetail: `"V1"`},
		{name: "malformed json", body: `{"features": `, wantStatus: http.StatusBadRequest, wantDetail: "invalid JSON body"},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantDetail: "empty"},
	}

	h := newServer(t, serverOptions{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, predictRequest(tt.body))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, detail(t, rec), tt.wantDetail)
		})
	}
}

func TestPredict_ClassifierFailure(t *testing.T) {
	h := newServer(t, serverOptions{classifier: failingClassifier{}})

	rec := do(t, h, predictRequest(`{"features": {}}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", detail(t, rec))
}

type failingClassifier struct{}

func (failingClassifier) PredictProba(context.Context, [][]float64) ([][]float64, error) {
	return nil, errors.New("model crashed")
}

func TestBulkPredict_MissingColumnIsZeroFilled(t *testing.T) {
	h := newServer(t, serverOptions{classifier: amountClassifier{}})

	input := testutil.NewCSV([]float64{20, 400, 100}, "V17")
	rec := do(t, h, uploadRequest(t, "transactions.csv", input))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.BatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "/download_last_csv", resp.CSVDownload)
	assert.Equal(t, []dto.RowResult{
		{Prediction: 0, Probability: 0.02},
		{Prediction: 1, Probability: 0.4},
		{Prediction: 0, Probability: 0.1},
	}, resp.Results)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/download_last_csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=fraud_results.csv", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, resp.CacheHandle, rec.Header().Get("X-Cache-Handle"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	inputHeader := strings.Split(strings.SplitN(input, "\n", 2)[0], ",")
	assert.Equal(t, append(inputHeader, "prediction", "probability"), records[0])
	assert.Equal(t, []string{"1", "0.4"}, records[2][len(records[2])-2:])
}

func TestBulkPredict_Errors(t *testing.T) {
	t.Run("non csv filename", func(t *testing.T) {
		h := newServer(t, serverOptions{})
		rec := do(t, h, uploadRequest(t, "transactions.xlsx", "Time,Amount\n0,1\n"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Upload a valid CSV file.", detail(t, rec))
	})

	t.Run("bad cell names the row", func(t *testing.T) {
		h := newServer(t, serverOptions{})
		rec := do(t, h, uploadRequest(t, "t.csv", "Time,Amount\n0,1\n0,2\n0,x\n"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, detail(t, rec), "row 2")
	})

	t.Run("header only", func(t *testing.T) {
		h := newServer(t, serverOptions{})
		rec := do(t, h, uploadRequest(t, "t.csv", "Time,Amount\n"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, detail(t, rec), "schema mismatch")
	})

	t.Run("missing file field", func(t *testing.T) {
		h := newServer(t, serverOptions{})
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/bulk_predict", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := do(t, h, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		h := newServer(t, serverOptions{})
		req := httptest.NewRequest(http.MethodPost, "/bulk_predict", strings.NewReader("Time\n1\n"))
		req.Header.Set("Content-Type", "text/csv")
		rec := do(t, h, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upload too large", func(t *testing.T) {
		h := newServer(t, serverOptions{maxUpload: 256})
		rec := do(t, h, uploadRequest(t, "t.csv", testutil.NewCSV([]float64{1, 2, 3, 4, 5})))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		h := newServer(t, serverOptions{limiter: rest.NewRateLimiter(0.001, 1)})
		rec := do(t, h, uploadRequest(t, "t.csv", "Amount\n1\n"))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, h, uploadRequest(t, "t.csv", "Amount\n1\n"))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestDownloadLastCSV(t *testing.T) {
	h := newServer(t, serverOptions{classifier: amountClassifier{}})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/download_last_csv", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No CSV generated yet.", detail(t, rec))

	var first, second dto.BatchResponse
	rec = do(t, h, uploadRequest(t, "a.csv", "Amount\n100\n"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	rec = do(t, h, uploadRequest(t, "b.csv", "Amount\n900\n"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/download_last_csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Amount,prediction,probability\n900,1,0.9\n", rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/download_last_csv?handle="+second.CacheHandle, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/download_last_csv?handle="+first.CacheHandle, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	h := newServer(t, serverOptions{})
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
