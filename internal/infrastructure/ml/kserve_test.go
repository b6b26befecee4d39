package ml_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudscore/internal/domain/model"
	"github.com/bibbank/fraudscore/internal/infrastructure/ml"
)

type inferTensor struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float64 `json:"data"`
}

type inferBody struct {
	Inputs  []inferTensor `json:"inputs,omitempty"`
	Outputs []inferTensor `json:"outputs,omitempty"`
}

func newInferServer(t *testing.T, path string, respond func(in inferTensor) []inferTensor) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req inferBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Inputs) != 1 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(inferBody{Outputs: respond(req.Inputs[0])})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestKServeClassifier_TwoColumnOutput(t *testing.T) {
	var got inferTensor
	srv := newInferServer(t, "/v2/models/fraud/infer", func(in inferTensor) []inferTensor {
		got = in
		return []inferTensor{{Name: "probabilities", Shape: []int{2, 2}, Datatype: "FP64", Data: []float64{0.9, 0.1, 0.2, 0.8}}}
	})

	c := ml.NewKServeClassifier(srv.URL+"/", "fraud")
	proba, err := c.PredictProba(context.Background(), [][]float64{
		features(map[string]float64{"Amount": 1}),
		features(map[string]float64{"Amount": 2}),
	})
	require.NoError(t, err)

	assert.Equal(t, "input-0", got.Name)
	assert.Equal(t, "FP64", got.Datatype)
	assert.Equal(t, []int{2, model.FieldCount}, got.Shape)
	require.Len(t, got.Data, 2*model.FieldCount)
	assert.Equal(t, 2.0, got.Data[model.FieldCount+model.FieldIndex("Amount")])

	assert.Equal(t, [][]float64{{0.9, 0.1}, {0.2, 0.8}}, proba)
}

func TestKServeClassifier_PositiveClassOnly(t *testing.T) {
	srv := newInferServer(t, "/v2/models/fraud/versions/3/infer", func(in inferTensor) []inferTensor {
		return []inferTensor{
			{Name: "label", Shape: []int{1}, Datatype: "FP64", Data: []float64{1}},
			{Name: "score", Shape: []int{1}, Datatype: "FP64", Data: []float64{0.75}},
		}
	})

	c := ml.NewKServeClassifier(srv.URL, "fraud",
		ml.WithKServeVersion("3"),
		ml.WithKServeOutputName("score"),
		ml.WithKServeTimeout(time.Second),
	)
	proba, err := c.PredictProba(context.Background(), [][]float64{features(nil)})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, proba[0][1], 1e-12)
	assert.InDelta(t, 0.25, proba[0][0], 1e-12)
}

func TestKServeClassifier_Errors(t *testing.T) {
	t.Run("missing named output", func(t *testing.T) {
		srv := newInferServer(t, "/v2/models/fraud/infer", func(in inferTensor) []inferTensor {
			return []inferTensor{{Name: "other", Data: []float64{0.5}}}
		})
		c := ml.NewKServeClassifier(srv.URL, "fraud", ml.WithKServeOutputName("score"))
		_, err := c.PredictProba(context.Background(), [][]float64{features(nil)})
		assert.ErrorContains(t, err, `output "score" not in response`)
	})

	t.Run("wrong output length", func(t *testing.T) {
		srv := newInferServer(t, "/v2/models/fraud/infer", func(in inferTensor) []inferTensor {
			return []inferTensor{{Name: "out", Shape: []int{3}, Data: []float64{0.1, 0.2, 0.3}}}
		})
		c := ml.NewKServeClassifier(srv.URL, "fraud")
		_, err := c.PredictProba(context.Background(), [][]float64{features(nil)})
		assert.ErrorContains(t, err, "has shape [3] with 3 values for 1 rows")
	})

	shapeMismatches := map[string]inferTensor{
		"pairs declared as one row of four": {Name: "out", Shape: []int{1, 4}, Data: []float64{0.9, 0.1, 0.2, 0.8}},
		"positive class transposed":         {Name: "out", Shape: []int{1, 2}, Data: []float64{0.1, 0.8}},
		"missing shape":                     {Name: "out", Data: []float64{0.1, 0.8}},
		"three classes":                     {Name: "out", Shape: []int{2, 3}, Data: []float64{0.1, 0.2, 0.7, 0.3, 0.3, 0.4}},
	}
	for name, tensor := range shapeMismatches {
		t.Run(name, func(t *testing.T) {
			srv := newInferServer(t, "/v2/models/fraud/infer", func(in inferTensor) []inferTensor {
				return []inferTensor{tensor}
			})
			c := ml.NewKServeClassifier(srv.URL, "fraud")
			_, err := c.PredictProba(context.Background(), [][]float64{features(nil), features(nil)})
			assert.ErrorContains(t, err, "has shape")
		})
	}

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)
		c := ml.NewKServeClassifier(srv.URL, "fraud")
		_, err := c.PredictProba(context.Background(), [][]float64{features(nil)})
		assert.ErrorContains(t, err, "status=503")
	})

	t.Run("wrong width", func(t *testing.T) {
		c := ml.NewKServeClassifier("http://127.0.0.1:1", "fraud")
		_, err := c.PredictProba(context.Background(), [][]float64{{1, 2}})
		assert.ErrorContains(t, err, "row 0 has 2 features")
	})
}

func TestKServeClassifier_Ready(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/models/fraud/ready" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	assert.NoError(t, ml.NewKServeClassifier(srv.URL, "fraud").Ready(context.Background()))
	assert.Error(t, ml.NewKServeClassifier(srv.URL, "other").Ready(context.Background()))
}

func TestKServeClassifier_CustomInputAndClient(t *testing.T) {
	var got inferTensor
	srv := newInferServer(t, "/v2/models/fraud/infer", func(in inferTensor) []inferTensor {
		got = in
		return []inferTensor{{Name: "p", Shape: []int{1}, Datatype: "FP64", Data: []float64{0.3}}}
	})

	c := ml.NewKServeClassifier(srv.URL, "fraud",
		ml.WithKServeInputName("transactions"),
		ml.WithKServeHTTPClient(srv.Client()),
	)
	proba, err := c.PredictProba(context.Background(), [][]float64{features(nil)})
	require.NoError(t, err)
	assert.Equal(t, "transactions", got.Name)
	assert.InDelta(t, 0.3, proba[0][1], 1e-12)
}

func TestKServeClassifier_ColumnVectorOutput(t *testing.T) {
	srv := newInferServer(t, "/v2/models/fraud/infer", func(in inferTensor) []inferTensor {
		return []inferTensor{{Name: "p", Shape: []int{2, 1}, Datatype: "FP64", Data: []float64{0.1, 0.8}}}
	})

	c := ml.NewKServeClassifier(srv.URL, "fraud")
	proba, err := c.PredictProba(context.Background(), [][]float64{features(nil), features(nil)})
	require.NoError(t, err)
	require.Len(t, proba, 2)
	assert.InDelta(t, 0.1, proba[0][1], 1e-12)
	assert.InDelta(t, 0.8, proba[1][1], 1e-12)
}

func TestKServeClassifier_SendsMissingValuesAsZero(t *testing.T) {
	var got inferTensor
	srv := newInferServer(t, "/v2/models/fraud/infer", func(in inferTensor) []inferTensor {
		got = in
		return []inferTensor{{Name: "p", Shape: []int{1}, Datatype: "FP64", Data: []float64{0.4}}}
	})

	row := features(map[string]float64{"Amount": 12})
	row[model.FieldIndex("V3")] = math.NaN()

	c := ml.NewKServeClassifier(srv.URL, "fraud")
	_, err := c.PredictProba(context.Background(), [][]float64{row})
	require.NoError(t, err)
	require.Len(t, got.Data, model.FieldCount)
	assert.Equal(t, 0.0, got.Data[model.FieldIndex("V3")])
	assert.Equal(t, 12.0, got.Data[model.FieldIndex("Amount")])
}
