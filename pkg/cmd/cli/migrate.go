package cli

import (
	"os"

	"github.com/kritgpt/matstat/config"
	"github.com/kritgpt/matstat/pkg/storage/sqlstore"
	colorable "github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type MigrateHandler struct {
	c *config.Config
}

func newMigrateHandler(c *config.Config) *MigrateHandler {
	return &MigrateHandler{c: c}
}

func getDatabaseURL(args []string, position int, fallback string) string {
	if len(args) <= position || args[position] == "" {
		return fallback
	}
	return args[position]
}

func useColoredLogs() {
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})
	log.SetOutput(colorable.NewColorableStdout())
}

func (h *MigrateHandler) MigrateSQL(cmd *cobra.Command, args []string) {
	url := getDatabaseURL(args, 0, h.c.DatabaseURL)
	if url == "" {
		cmd.Println(cmd.UsageString())
		os.Exit(2) // Return missing keyword or command
	}

	useColoredLogs()

	log.WithField("driver", h.c.DatabaseDriver).Info("Applying SQL migration...")

	db, err := sqlstore.Open(h.c.DatabaseDriver, url)
	if err != nil {
		log.Errorf("An error occurred while connecting to SQL: %s", err)
		os.Exit(1)
	}
	defer db.Close()

	n, err := sqlstore.Migrate(db)
	if err != nil {
		log.Errorf("An error occurred while running the migrations: %s", err)
		os.Exit(1)
	}
	log.Infof("Migration successful! Applied a total of %d migrations.", n)
}
