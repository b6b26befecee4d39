package ml

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/fraudscore/internal/domain/port"
	"github.com/bibbank/fraudscore/internal/domain/service"
)

// Supported model formats.
const (
	FormatXGBoost  = "xgboost"
	FormatLogistic = "logistic"
	FormatKServe   = "kserve"
	FormatStub     = "stub"
)

// EngineConfig selects and locates the classifier and optional scaler.
type EngineConfig struct {
	ModelPath       string
	ModelFormat     string
	ScalerPath      string
	KServeEndpoint  string
	KServeModel     string
	KServeTimeout   time.Duration
	StubProbability float64
}

// LoadClassifier loads the classifier described by cfg.
func LoadClassifier(cfg EngineConfig, logger *slog.Logger) (port.Classifier, error) {
	switch cfg.ModelFormat {
	case FormatXGBoost, "":
		m, err := LoadXGBoostJSON(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded xgboost model", "path", cfg.ModelPath, "trees", m.NumTrees())
		return m, nil
	case FormatLogistic:
		m, err := LoadLogisticJSON(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded logistic model", "path", cfg.ModelPath)
		return m, nil
	case FormatKServe:
		if cfg.KServeEndpoint == "" || cfg.KServeModel == "" {
			return nil, fmt.Errorf("kserve endpoint and model name are required")
		}
		var opts []KServeOption
		if cfg.KServeTimeout > 0 {
			opts = append(opts, WithKServeTimeout(cfg.KServeTimeout))
		}
		logger.Info("using remote kserve model", "endpoint", cfg.KServeEndpoint, "model", cfg.KServeModel)
		return NewKServeClassifier(cfg.KServeEndpoint, cfg.KServeModel, opts...), nil
	case FormatStub:
		logger.Warn("using stub classifier", "probability", cfg.StubProbability)
		return NewStubClassifier(cfg.StubProbability, logger), nil
	default:
		return nil, fmt.Errorf("unknown model format %q", cfg.ModelFormat)
	}
}

// LoadEngine builds the scoring engine. A classifier that cannot be loaded
// is an error the caller must treat as fatal. A scaler that cannot be loaded
// is logged and the engine runs on raw features.
func LoadEngine(cfg EngineConfig, logger *slog.Logger) (*service.ScoringEngine, error) {
	classifier, err := LoadClassifier(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	var policy service.FeaturePolicy = service.RawFeaturePolicy{}
	if cfg.ScalerPath != "" {
		scaler, err := LoadStandardScaler(cfg.ScalerPath)
		if err != nil {
			logger.Warn("failed to load scaler, scoring raw features", "path", cfg.ScalerPath, "error", err)
		} else {
			policy = service.NewScaledFeaturePolicy(scaler)
		}
	}

	engine := service.NewScoringEngine(classifier, policy)
	logger.Info("scoring engine ready", "feature_policy", engine.Policy(), "threshold", service.DefaultThreshold)
	return engine, nil
}
