package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	infrapg "github.com/bibbank/fraudscore/internal/infrastructure/postgres"
	pkgpostgres "github.com/bibbank/fraudscore/pkg/postgres"
)

func newMigrateCmd() *cli.Command {
	dbFlag := &cli.StringFlag{
		Name:     "database-url",
		Usage:    "PostgreSQL DSN of the bulk result cache",
		Sources:  cli.EnvVars("DATABASE_URL"),
		Required: true,
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the schema of the postgres result cache",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Flags: []cli.Flag{dbFlag},
				Action: func(_ context.Context, cmd *cli.Command) error {
					if err := infrapg.Migrate(cmd.String("database-url")); err != nil {
						return err
					}
					fmt.Fprintln(cmd.Root().Writer, "migrations applied")
					return nil
				},
			},
			{
				Name:  "down",
				Usage: "Roll back all migrations",
				Flags: []cli.Flag{dbFlag},
				Action: func(_ context.Context, cmd *cli.Command) error {
					if err := pkgpostgres.RunMigrationsDown(cmd.String("database-url"), infrapg.MigrationFS(), infrapg.MigrationsDir); err != nil {
						return err
					}
					fmt.Fprintln(cmd.Root().Writer, "migrations rolled back")
					return nil
				},
			},
		},
	}
}
