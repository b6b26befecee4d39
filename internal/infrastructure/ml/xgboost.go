package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// TreeEnsemble is a gradient boosted tree classifier loaded from the JSON
// document written by XGBoost's save_model. Only gbtree boosters with a
// logistic objective are supported.
type TreeEnsemble struct {
	trees      []tree
	baseMargin float64
	objective  string
}

type treeNode struct {
	left, right int32
	feature     int32
	cond        float32 // split threshold, or the leaf value when left < 0
	defaultLeft bool
}

type tree []treeNode

// leaf walks the tree for row. Features are compared in float32, the
// precision XGBoost trains and predicts with.
func (t tree) leaf(row []float64) float64 {
	i := int32(0)
	for t[i].left >= 0 {
		n := t[i]
		x := row[n.feature]
		switch {
		case math.IsNaN(x):
			if n.defaultLeft {
				i = n.left
			} else {
				i = n.right
			}
		case float32(x) < n.cond:
			i = n.left
		default:
			i = n.right
		}
	}
	return float64(t[i].cond)
}

type xgbDocument struct {
	Learner struct {
		Attributes      map[string]string `json:"attributes"`
		FeatureNames    []string          `json:"feature_names"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Param struct {
					NumParallelTree string `json:"num_parallel_tree"`
				} `json:"gbtree_model_param"`
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
		ModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int32   `json:"left_children"`
	RightChildren   []int32   `json:"right_children"`
	SplitIndices    []int32   `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	SplitType       []int     `json:"split_type"`
	DefaultLeft     flexBools `json:"default_left"`
}

// flexBools accepts both [0,1] and [false,true]; XGBoost releases disagree.
type flexBools []bool

func (b *flexBools) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, v := range raw {
		switch val := v.(type) {
		case bool:
			out[i] = val
		case float64:
			out[i] = val != 0
		default:
			return fmt.Errorf("default_left[%d]: unexpected %T", i, v)
		}
	}
	*b = out
	return nil
}

// LoadXGBoostJSON reads a TreeEnsemble from path.
func LoadXGBoostJSON(path string) (*TreeEnsemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read xgboost model: %w", err)
	}
	return ParseXGBoostJSON(data)
}

// ParseXGBoostJSON decodes and validates an XGBoost JSON model.
func ParseXGBoostJSON(data []byte) (*TreeEnsemble, error) {
	var doc xgbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode xgboost model: %w", err)
	}
	l := doc.Learner

	if name := l.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("unsupported booster %q", name)
	}
	switch l.Objective.Name {
	case "binary:logistic", "reg:logistic":
	default:
		return nil, fmt.Errorf("unsupported objective %q", l.Objective.Name)
	}
	if n := parseIntOr(l.ModelParam.NumClass, 0); n > 1 {
		return nil, fmt.Errorf("unsupported multi-class model with %d classes", n)
	}
	if n := parseIntOr(l.ModelParam.NumFeature, model.FieldCount); n != model.FieldCount {
		return nil, fmt.Errorf("model expects %d features, schema has %d", n, model.FieldCount)
	}
	if len(l.FeatureNames) > 0 && !model.SameFields(l.FeatureNames) {
		return nil, fmt.Errorf("model feature names %v do not match schema order", l.FeatureNames)
	}

	baseScore, err := parseBaseScore(l.ModelParam.BaseScore)
	if err != nil {
		return nil, err
	}

	raw := l.GradientBooster.Model.Trees
	if len(raw) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}
	if best, ok := l.Attributes["best_iteration"]; ok {
		perRound := parseIntOr(l.GradientBooster.Model.Param.NumParallelTree, 1)
		if it, err := strconv.Atoi(best); err == nil && it >= 0 {
			if limit := (it + 1) * max(perRound, 1); limit < len(raw) {
				raw = raw[:limit]
			}
		}
	}

	trees := make([]tree, len(raw))
	for i, rt := range raw {
		t, err := buildTree(rt)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = t
	}

	return &TreeEnsemble{
		trees:      trees,
		baseMargin: logit(baseScore),
		objective:  l.Objective.Name,
	}, nil
}

func buildTree(rt xgbTree) (tree, error) {
	n := len(rt.LeftChildren)
	if n == 0 {
		return nil, fmt.Errorf("empty tree")
	}
	if len(rt.RightChildren) != n || len(rt.SplitIndices) != n || len(rt.SplitConditions) != n || len(rt.DefaultLeft) != n {
		return nil, fmt.Errorf("node arrays have inconsistent lengths")
	}

	t := make(tree, n)
	for i := 0; i < n; i++ {
		left, right := rt.LeftChildren[i], rt.RightChildren[i]
		node := treeNode{
			left:        left,
			right:       right,
			feature:     rt.SplitIndices[i],
			cond:        float32(rt.SplitConditions[i]),
			defaultLeft: rt.DefaultLeft[i],
		}
		if left >= 0 {
			// Children always follow their parent, which rules out cycles.
			if int(left) <= i || int(right) <= i || int(left) >= n || int(right) >= n {
				return nil, fmt.Errorf("node %d has invalid children %d/%d", i, left, right)
			}
			if node.feature < 0 || int(node.feature) >= model.FieldCount {
				return nil, fmt.Errorf("node %d splits on feature %d", i, node.feature)
			}
			if i < len(rt.SplitType) && rt.SplitType[i] != 0 {
				return nil, fmt.Errorf("node %d uses a categorical split", i)
			}
		}
		t[i] = node
	}
	return t, nil
}

// parseBaseScore accepts "5E-1" as well as the bracketed "[5E-1]" form.
func parseBaseScore(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return 0.5, nil
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid base_score %q: %w", s, err)
	}
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("base_score %v outside (0, 1)", p)
	}
	return p, nil
}

func parseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

// NumTrees returns the number of trees used for prediction.
func (m *TreeEnsemble) NumTrees() int {
	return len(m.trees)
}

// Margin returns the raw additive score of row before the sigmoid.
func (m *TreeEnsemble) Margin(row []float64) float64 {
	margin := m.baseMargin
	for _, t := range m.trees {
		margin += t.leaf(row)
	}
	return margin
}

// PredictProba implements port.Classifier.
func (m *TreeEnsemble) PredictProba(ctx context.Context, matrix [][]float64) ([][]float64, error) {
	for i, row := range matrix {
		if len(row) != model.FieldCount {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), model.FieldCount)
		}
	}
	return predictRows(ctx, matrix, func(row []float64) float64 {
		return sigmoid(m.Margin(row))
	})
}
