package postgres

import (
	"embed"

	pkgpostgres "github.com/bibbank/fraudscore/pkg/postgres"
)

// MigrationsDir is the root of the schema files inside MigrationFS.
const MigrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationFS exposes the embedded schema files.
func MigrationFS() embed.FS { return migrationFS }

// Migrate brings the bulk result schema up to date.
func Migrate(dsn string) error {
	return pkgpostgres.RunMigrations(dsn, migrationFS, MigrationsDir)
}
