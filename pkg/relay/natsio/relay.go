// Package natsio relays realtime events to NATS. Every event is published as
// the same envelope the websocket subscribers receive.
package natsio

import (
	"fmt"

	"github.com/kritgpt/matstat/pkg/broadcast/message"
	nats "github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

const DefaultSubjectPrefix = "matstat.v1"

type Config struct {
	URL           string
	SubjectPrefix string
}

type Publisher struct {
	cfg *Config
	nc  *nats.Conn
}

func New(cfg *Config) (*Publisher, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("matstat"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to nats at %s", cfg.URL)
	}

	return &Publisher{
		cfg: cfg,
		nc:  nc,
	}, nil
}

func (r *Publisher) Name() string {
	return "nats"
}

func (r *Publisher) Relay(event string, payload interface{}) error {
	data, err := message.Marshal(event, payload)
	if err != nil {
		return err
	}
	return r.nc.Publish(EventSubject(r.cfg.SubjectPrefix, event), data)
}

func (r *Publisher) Close() {
	r.nc.Close()
}

// EventSubject returns the subject an event is published to.
func EventSubject(prefix, event string) string {
	return fmt.Sprintf("%s.events.%s", prefix, event)
}

// WildcardSubject matches every event below prefix.
func WildcardSubject(prefix string) string {
	return fmt.Sprintf("%s.events.>", prefix)
}
