package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// KServeClassifier calls a remote model over the KServe V2 (Open Inference)
// REST protocol:
//
//	POST {endpoint}/v2/models/{model}[/versions/{version}]/infer
//	GET  {endpoint}/v2/models/{model}[/versions/{version}]/ready
type KServeClassifier struct {
	endpoint   string
	modelName  string
	version    string
	inputName  string
	outputName string
	httpClient *http.Client
}

// KServeOption configures a KServeClassifier.
type KServeOption func(*KServeClassifier)

// WithKServeVersion pins a model version.
func WithKServeVersion(version string) KServeOption {
	return func(c *KServeClassifier) { c.version = version }
}

// WithKServeInputName overrides the input tensor name (default "input-0").
func WithKServeInputName(name string) KServeOption {
	return func(c *KServeClassifier) { c.inputName = name }
}

// WithKServeOutputName selects the output tensor by name instead of taking the first.
func WithKServeOutputName(name string) KServeOption {
	return func(c *KServeClassifier) { c.outputName = name }
}

// WithKServeTimeout sets the per-request timeout.
func WithKServeTimeout(timeout time.Duration) KServeOption {
	return func(c *KServeClassifier) { c.httpClient.Timeout = timeout }
}

// WithKServeHTTPClient replaces the HTTP client.
func WithKServeHTTPClient(client *http.Client) KServeOption {
	return func(c *KServeClassifier) { c.httpClient = client }
}

// NewKServeClassifier creates a client for modelName served at endpoint.
func NewKServeClassifier(endpoint, modelName string, opts ...KServeOption) *KServeClassifier {
	c := &KServeClassifier{
		endpoint:   strings.TrimRight(endpoint, "/"),
		modelName:  modelName,
		inputName:  "input-0",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type v2Tensor struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float64 `json:"data"`
}

type v2InferRequest struct {
	Inputs []v2Tensor `json:"inputs"`
}

type v2InferResponse struct {
	ModelName string     `json:"model_name"`
	Outputs   []v2Tensor `json:"outputs"`
}

func (c *KServeClassifier) modelPath() string {
	path := fmt.Sprintf("%s/v2/models/%s", c.endpoint, c.modelName)
	if c.version != "" {
		path = fmt.Sprintf("%s/versions/%s", path, c.version)
	}
	return path
}

// PredictProba implements port.Classifier. JSON has no NaN, so missing
// values are sent as 0.
func (c *KServeClassifier) PredictProba(ctx context.Context, matrix [][]float64) ([][]float64, error) {
	rows := len(matrix)
	data := make([]float64, 0, rows*model.FieldCount)
	for i, row := range matrix {
		if len(row) != model.FieldCount {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), model.FieldCount)
		}
		for _, v := range row {
			if math.IsNaN(v) {
				v = 0
			}
			data = append(data, v)
		}
	}

	body, err := json.Marshal(v2InferRequest{Inputs: []v2Tensor{{
		Name:     c.inputName,
		Shape:    []int{rows, model.FieldCount},
		Datatype: "FP64",
		Data:     data,
	}}})
	if err != nil {
		return nil, fmt.Errorf("kserve v2 marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelPath()+"/infer", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kserve v2 create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kserve v2 request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kserve v2 read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kserve v2 error: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var out v2InferResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("kserve v2 parse response: %w", err)
	}
	return c.probabilities(out, rows)
}

// probabilities accepts an [n, 2] class-probability tensor or an [n] / [n, 1]
// tensor holding the positive class only.
func (c *KServeClassifier) probabilities(resp v2InferResponse, rows int) ([][]float64, error) {
	if len(resp.Outputs) == 0 {
		return nil, fmt.Errorf("kserve v2 empty outputs")
	}
	tensor := resp.Outputs[0]
	if c.outputName != "" {
		found := false
		for _, o := range resp.Outputs {
			if o.Name == c.outputName {
				tensor, found = o, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("kserve v2 output %q not in response", c.outputName)
		}
	}

	n := len(tensor.Data)
	out := make([][]float64, rows)
	switch {
	case shapeIs(tensor.Shape, rows, 2) && n == rows*2:
		for i := range out {
			out[i] = []float64{tensor.Data[2*i], tensor.Data[2*i+1]}
		}
	case (shapeIs(tensor.Shape, rows) || shapeIs(tensor.Shape, rows, 1)) && n == rows:
		for i, p := range tensor.Data {
			out[i] = []float64{1 - p, p}
		}
	default:
		return nil, fmt.Errorf("kserve v2 output %q has shape %v with %d values for %d rows", tensor.Name, tensor.Shape, n, rows)
	}
	return out, nil
}

func shapeIs(shape []int, dims ...int) bool {
	return slices.Equal(shape, dims)
}

// Ready reports whether the remote model is loaded.
func (c *KServeClassifier) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelPath()+"/ready", nil)
	if err != nil {
		return fmt.Errorf("kserve v2 create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kserve v2 ready check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kserve v2 model not ready: status=%d", resp.StatusCode)
	}
	return nil
}
