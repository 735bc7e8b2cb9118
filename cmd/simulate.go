package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Stream simulated sensor readings into a running server",
	Run:   cmdHandler.Simulate.Simulate,
}

func init() {
	RootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().String("url", "http://localhost:5000", "base url of the server")
	simulateCmd.Flags().Int("sensors", 4, "number of sensors per batch")
	simulateCmd.Flags().Float64("rate", 10, "batches per second")
	simulateCmd.Flags().Duration("duration", 30*time.Second, "how long to stream, 0 streams until interrupted")
	simulateCmd.Flags().String("training-type", "simulation", "training type of the started session")
	simulateCmd.Flags().Bool("keep-open", false, "do not end the session when done")
}
