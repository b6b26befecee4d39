package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/bibbank/fraudscore/internal/application/dto"
	"github.com/bibbank/fraudscore/internal/application/usecase"
)

// bulkSummary is printed after the scored table has been written.
type bulkSummary struct {
	Output  string `json:"output" yaml:"output"`
	Rows    int    `json:"rows" yaml:"rows"`
	Flagged int    `json:"flagged" yaml:"flagged"`
}

func newBulkCmd() *cli.Command {
	return &cli.Command{
		Name:  "bulk",
		Usage: "Score every row of a CSV file and write it back with prediction and probability columns",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "in",
				Usage:    "Input CSV file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: `Output CSV file; "-" writes the table to stdout`,
				Value: usecase.ResultFilename,
			},
		}, modelFlags()...),
		Action: cmdBulk,
	}
}

func cmdBulk(ctx context.Context, cmd *cli.Command) error {
	uc, err := newUseCases(cmd)
	if err != nil {
		return err
	}

	in := cmd.String("in")
	f, err := os.Open(in) // #nosec G304 -- operator-provided input path.
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	result, err := uc.scoreBatch.Execute(ctx, dto.ScoreBatchRequest{
		Content:  f,
		Filename: filepath.Base(in),
		Source:   dto.SourceCLI,
	})
	if err != nil {
		return err
	}

	file, err := uc.fetchBatch.Execute(ctx, result.CacheHandle)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "-" {
		_, err := cmd.Root().Writer.Write(file.Data)
		return err
	}
	if out == "" {
		return errors.New("--out must not be empty")
	}
	if err := os.WriteFile(out, file.Data, 0o644); err != nil { // #nosec G306 -- scored output is not secret.
		return fmt.Errorf("failed to write output: %w", err)
	}

	return encode(cmd, bulkSummary{
		Output:  out,
		Rows:    result.Rows,
		Flagged: result.Flagged,
	})
}
