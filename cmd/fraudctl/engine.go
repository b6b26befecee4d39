package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/bibbank/fraudscore/internal/application/usecase"
	"github.com/bibbank/fraudscore/internal/domain/service"
	"github.com/bibbank/fraudscore/internal/infrastructure/cache"
	"github.com/bibbank/fraudscore/internal/infrastructure/messaging"
	"github.com/bibbank/fraudscore/internal/infrastructure/metrics"
	"github.com/bibbank/fraudscore/internal/infrastructure/ml"
	"github.com/bibbank/fraudscore/internal/infrastructure/tabular"
)

// modelFlags mirror the MODEL_* settings of fraudscored.
func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "model",
			Usage:   "Path to the serialized classifier",
			Value:   "model/model.json",
			Sources: cli.EnvVars("MODEL_PATH"),
		},
		&cli.StringFlag{
			Name:    "model-format",
			Usage:   fmt.Sprintf("Classifier format [%s, %s, %s, %s]", ml.FormatXGBoost, ml.FormatLogistic, ml.FormatKServe, ml.FormatStub),
			Value:   ml.FormatXGBoost,
			Sources: cli.EnvVars("MODEL_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "scaler",
			Usage:   "Path to a fitted standard scaler (optional)",
			Sources: cli.EnvVars("SCALER_PATH"),
		},
		&cli.StringFlag{
			Name:    "kserve-endpoint",
			Usage:   "Base URL of a KServe v2 inference server",
			Sources: cli.EnvVars("KSERVE_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:    "kserve-model",
			Usage:   "Model name on the inference server",
			Sources: cli.EnvVars("KSERVE_MODEL"),
		},
		&cli.DurationFlag{
			Name:    "kserve-timeout",
			Usage:   "Inference request timeout",
			Value:   10 * time.Second,
			Sources: cli.EnvVars("KSERVE_TIMEOUT"),
		},
		&cli.FloatFlag{
			Name:    "stub-probability",
			Usage:   "Fixed probability returned by the stub classifier",
			Value:   0.5,
			Sources: cli.EnvVars("STUB_PROBABILITY"),
		},
	}
}

func engineConfig(cmd *cli.Command) ml.EngineConfig {
	return ml.EngineConfig{
		ModelPath:       cmd.String("model"),
		ModelFormat:     cmd.String("model-format"),
		ScalerPath:      cmd.String("scaler"),
		KServeEndpoint:  cmd.String("kserve-endpoint"),
		KServeModel:     cmd.String("kserve-model"),
		KServeTimeout:   cmd.Duration("kserve-timeout"),
		StubProbability: cmd.Float("stub-probability"),
	}
}

// useCases is the in-process scoring stack used by the local commands.
type useCases struct {
	scoreTx    *usecase.ScoreTransaction
	scoreBatch *usecase.ScoreBatch
	fetchBatch *usecase.FetchLastBatch
}

func newUseCases(cmd *cli.Command) (*useCases, error) {
	logger := slog.Default()

	engine, err := ml.LoadEngine(engineConfig(cmd), logger)
	if err != nil {
		return nil, err
	}
	recorder, err := metrics.NewRecorder(noop.NewMeterProvider())
	if err != nil {
		return nil, err
	}
	publisher := messaging.NewLogPublisher(logger)
	bulk := service.NewBulkScorer(engine, tabular.NewCSVCodec(), cache.NewMemoryCache())

	return &useCases{
		scoreTx:    usecase.NewScoreTransaction(service.NewTransactionScorer(engine), publisher, recorder, logger),
		scoreBatch: usecase.NewScoreBatch(bulk, publisher, recorder, logger),
		fetchBatch: usecase.NewFetchLastBatch(bulk, logger),
	}, nil
}
