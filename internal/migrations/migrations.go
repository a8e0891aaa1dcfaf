package migrations

import (
	_ "embed"

	"github.com/nyx-chain/evmsync/internal/db"
	"github.com/nyx-chain/evmsync/pkg/config"
)

//go:embed 001_initial.sql
var mig001 string

// RunMigrations applies the schema to the configured database: the blocks,
// transactions, and logs tables and their indexes (spec §3/§6).
func RunMigrations(cfg config.DatabaseConfig) error {
	migrations := []db.Migration{
		{
			ID:  "001_initial.sql",
			SQL: mig001,
		},
	}

	return db.RunMigrations(cfg, migrations)
}
