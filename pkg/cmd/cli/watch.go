package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kritgpt/matstat/config"
	"github.com/kritgpt/matstat/pkg/relay/natsio"
	nats "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type WatchHandler struct {
	c *config.Config
}

func newWatchHandler(c *config.Config) *WatchHandler {
	return &WatchHandler{c: c}
}

// Watch prints every event relayed to NATS until interrupted.
func (h *WatchHandler) Watch(cmd *cobra.Command, args []string) {
	useColoredLogs()

	url := h.c.NATSServerURL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url)
	if err != nil {
		log.Errorf("Failed to connect to NATS: %v", err)
		os.Exit(1)
	}
	defer nc.Close()

	subj := natsio.WildcardSubject(h.c.NATSSubjectPrefix)
	if _, err := nc.Subscribe(subj, func(m *nats.Msg) {
		fmt.Printf("subject: %s, message: %s\n", m.Subject, string(m.Data))
	}); err != nil {
		log.Errorf("Failed to subscribe to %s: %v", subj, err)
		os.Exit(1)
	}
	log.WithField("subject", subj).Info("Watching events")

	// Wait for interrupt signal
	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, os.Interrupt, syscall.SIGTERM)
	<-quitCh
}
