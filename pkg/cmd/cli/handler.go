package cli

import "github.com/kritgpt/matstat/config"

type Handler struct {
	Migration *MigrateHandler
	Simulate  *SimulateHandler
	Watch     *WatchHandler
}

func NewHandler(c *config.Config) *Handler {
	return &Handler{
		Migration: newMigrateHandler(c),
		Simulate:  newSimulateHandler(c),
		Watch:     newWatchHandler(c),
	}
}
