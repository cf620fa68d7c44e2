package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rishabhrocktheparty-ai/Blackgpt/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create or update the signals, audit and correlation job tables, including
the partial unique index that allows one in-flight correlation per signal.

Examples:
  blackgpt migrate
  BLACKGPT_DATABASE_DRIVER=postgres BLACKGPT_DATABASE_DSN=... blackgpt migrate`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, closeLog, err := loadRuntime()
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", cfg.Database.Driver)
	return nil
}
