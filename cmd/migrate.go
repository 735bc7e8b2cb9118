package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// migrateCmd groups the database migration commands
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration helpers",
	Long: `Apply the embedded schema migrations to the session store.

Run "matstat migrate sql" against the configured database before serving
when AUTO_MIGRATE is disabled.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
