package cmd

import (
	"github.com/spf13/cobra"
)

// migrateSQLCmd represents the migrate sql command
var migrateSQLCmd = &cobra.Command{
	Use:   "sql [database-url]",
	Short: "Create SQL schemas and apply migration plans",
	Long: `Applies the migrations of DATABASE_DRIVER to the given database. The
database url defaults to DATABASE_URL.`,
	Run: cmdHandler.Migration.MigrateSQL,
}

func init() {
	migrateCmd.AddCommand(migrateSQLCmd)
}
