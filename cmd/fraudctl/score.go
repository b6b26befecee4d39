package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"

	"github.com/bibbank/fraudscore/internal/application/dto"
	grpcpresentation "github.com/bibbank/fraudscore/internal/presentation/grpc"
	"github.com/bibbank/fraudscore/pkg/tlsutil"
)

func newScoreCmd() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score one transaction given as a JSON object of feature values",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "features",
				Usage: `Feature values, e.g. '{"V14": -7.2, "Amount": 149.62}'; "-" reads stdin`,
			},
			&cli.StringFlag{
				Name:  "features-file",
				Usage: "File holding the feature JSON",
			},
			&cli.StringFlag{
				Name:  "transaction-id",
				Usage: "Identifier echoed back in the result",
			},
			&cli.StringFlag{
				Name:    "remote",
				Usage:   "Score against a running fraudscored gRPC address instead of a local model",
				Sources: cli.EnvVars("FRAUDSCORE_GRPC_ADDR"),
			},
			&cli.StringFlag{
				Name:    "remote-ca",
				Usage:   "PEM bundle used to verify the --remote server; plaintext when empty",
				Sources: cli.EnvVars("FRAUDSCORE_GRPC_CA"),
			},
		}, modelFlags()...),
		Action: cmdScore,
	}
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	features, err := readFeatures(cmd)
	if err != nil {
		return err
	}

	var resp dto.ScoreResponse
	if addr := cmd.String("remote"); addr != "" {
		resp, err = scoreRemote(ctx, addr, cmd.String("remote-ca"), cmd.String("transaction-id"), features)
	} else {
		resp, err = scoreLocal(ctx, cmd, features)
	}
	if err != nil {
		return err
	}
	return encode(cmd, resp)
}

func readFeatures(cmd *cli.Command) (map[string]any, error) {
	var raw []byte
	switch {
	case cmd.String("features") == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = b
	case cmd.String("features") != "":
		raw = []byte(cmd.String("features"))
	case cmd.String("features-file") != "":
		b, err := os.ReadFile(cmd.String("features-file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read features file: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("one of --features or --features-file is required")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var features map[string]any
	if err := dec.Decode(&features); err != nil {
		return nil, fmt.Errorf("features must be a JSON object: %w", err)
	}
	return features, nil
}

func scoreLocal(ctx context.Context, cmd *cli.Command, features map[string]any) (dto.ScoreResponse, error) {
	uc, err := newUseCases(cmd)
	if err != nil {
		return dto.ScoreResponse{}, err
	}
	return uc.scoreTx.Execute(ctx, dto.ScoreTransactionRequest{
		Features:      features,
		TransactionID: cmd.String("transaction-id"),
		Source:        dto.SourceCLI,
	})
}

func scoreRemote(ctx context.Context, addr, caFile, transactionID string, features map[string]any) (dto.ScoreResponse, error) {
	creds, err := tlsutil.ClientCredentials(caFile)
	if err != nil {
		return dto.ScoreResponse{}, err
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return dto.ScoreResponse{}, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer conn.Close()

	out, err := grpcpresentation.NewScoringServiceClient(conn).Score(ctx, &grpcpresentation.ScoreRequest{
		TransactionID: transactionID,
		Features:      features,
	})
	if err != nil {
		return dto.ScoreResponse{}, fmt.Errorf("remote score failed: %w", err)
	}

	scoreID, err := uuid.Parse(out.ScoreID)
	if err != nil {
		return dto.ScoreResponse{}, fmt.Errorf("server returned malformed score_id %q: %w", out.ScoreID, err)
	}
	top := make([]dto.TopFeature, len(out.TopFeatures))
	for i, f := range out.TopFeatures {
		top[i] = dto.TopFeature{Feature: f.Feature, Value: f.Value}
	}
	return dto.ScoreResponse{
		ScoreID:       scoreID,
		TransactionID: out.TransactionID,
		Prediction:    int(out.Prediction),
		Probability:   out.Probability,
		RiskBand:      out.RiskBand,
		TopFeatures:   top,
	}, nil
}
