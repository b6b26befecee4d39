package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/bibbank/fraudscore/pkg/observability"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

const (
	debugFlagName  = "debug"
	formatFlagName = "format"
)

var (
	version = "v0.0.1-default"
	commit  = ""
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "fraudctl",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Usage:   "Score credit-card transactions from the command line",
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs to stderr",
			},
			&cli.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*cli.Command{
			newScoreCmd(),
			newBulkCmd(),
			newMigrateCmd(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := "warn"
			if cmd.Bool(debugFlagName) {
				level = "debug"
			}
			observability.InitLogger(observability.LogConfig{
				Level:  level,
				Format: "text",
				Output: os.Stderr,
			})

			switch f := cmd.String(formatFlagName); f {
			case formatJSON, formatYAML, "yml":
			default:
				return ctx, fmt.Errorf("unsupported output format %q", f)
			}
			return ctx, nil
		},
	}
}

// encode writes v to the command's writer in the selected output format.
func encode(cmd *cli.Command, v any) error {
	w := cmd.Root().Writer
	if f := cmd.String(formatFlagName); f == formatYAML || f == "yml" {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
