package cmd

import (
	"github.com/kritgpt/matstat/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session API and the realtime channel",
	Run:   server.RunServe(c),
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
