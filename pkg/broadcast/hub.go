// Package broadcast fans out session and sensor events to every connected
// subscriber. Delivery is best effort: a subscriber that cannot take a frame
// is skipped and the publisher is never blocked.
package broadcast

import (
	"sync"

	"github.com/kritgpt/matstat/pkg/broadcast/message"
	"github.com/kritgpt/matstat/pkg/training"
	log "github.com/sirupsen/logrus"
)

const relayQueueSize = 256

// Subscriber is a connected client.
type Subscriber interface {
	ID() string
	// Send queues a frame for delivery. It returns false if the subscriber
	// is gone or its queue is full.
	Send(data []byte) bool
	Close()
}

// Relay forwards events to a system outside of the process.
type Relay interface {
	Name() string
	Relay(event string, payload interface{}) error
}

// SessionLookup is used to greet new subscribers with the active session.
// Greet must call fn while no session transition can happen, so that the
// greeting is never overtaken by a later session event.
type SessionLookup interface {
	Greet(fn func(desc *training.SessionDescriptor)) error
}

type relayEvent struct {
	event   string
	payload interface{}
}

type Hub struct {
	sync.RWMutex
	subscribers map[string]Subscriber
	lookup      SessionLookup
	relays      []Relay
	relayCh     chan *relayEvent
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]Subscriber),
		relayCh:     make(chan *relayEvent, relayQueueSize),
		stopCh:      make(chan struct{}),
	}
}

// SetSessionLookup sets the source of the session_started greeting.
func (h *Hub) SetSessionLookup(lookup SessionLookup) {
	h.Lock()
	h.lookup = lookup
	h.Unlock()
}

// AddRelay registers a relay. Relays must be added before Start.
func (h *Hub) AddRelay(r Relay) {
	h.Lock()
	h.relays = append(h.relays, r)
	h.Unlock()
}

// Start runs the relay worker.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.relayWorker()
}

// Close stops the relay worker and disconnects all subscribers. Events
// still queued are dropped.
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
	h.wg.Wait()

	h.RLock()
	subscribers := make([]Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subscribers = append(subscribers, sub)
	}
	h.RUnlock()

	for _, sub := range subscribers {
		sub.Close()
	}
}

// Register adds a subscriber. If a session is active the subscriber
// immediately receives session_started.
func (h *Hub) Register(sub Subscriber) {
	h.Lock()
	h.subscribers[sub.ID()] = sub
	lookup := h.lookup
	h.Unlock()

	log.WithField("connection_id", sub.ID()).Info("hub registered subscriber")

	if lookup == nil {
		return
	}

	err := lookup.Greet(func(desc *training.SessionDescriptor) {
		if desc == nil {
			return
		}
		h.PublishTo(sub.ID(), message.EventSessionStarted, &message.SessionStarted{
			SessionID:    desc.ID,
			StartTime:    desc.StartTime,
			TrainingType: desc.TrainingType,
		})
	})
	if err != nil {
		log.WithField("connection_id", sub.ID()).Errorf("hub could not look up active session: %v", err)
	}
}

// Unregister removes a subscriber. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.Lock()
	_, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.Unlock()

	if ok {
		log.WithField("connection_id", id).Info("hub unregistered subscriber")
	}
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.subscribers)
}

// Publish delivers the event to all registered subscribers and queues it for
// the relays.
func (h *Hub) Publish(event string, payload interface{}) {
	data, err := message.Marshal(event, payload)
	if err != nil {
		log.Errorf("hub failed to marshal event '%s': %v", event, err)
		return
	}

	h.RLock()
	subscribers := make([]Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subscribers = append(subscribers, sub)
	}
	hasRelays := len(h.relays) > 0
	h.RUnlock()

	for _, sub := range subscribers {
		if !sub.Send(data) {
			log.WithField("connection_id", sub.ID()).Warnf("hub skipped stale subscriber for event '%s'", event)
		}
	}

	if hasRelays {
		select {
		case h.relayCh <- &relayEvent{event: event, payload: payload}:
		default:
			log.Warnf("hub relay queue is full, dropped event '%s'", event)
		}
	}
}

// PublishTo delivers the event to a single subscriber.
func (h *Hub) PublishTo(connectionID string, event string, payload interface{}) {
	h.RLock()
	sub, ok := h.subscribers[connectionID]
	h.RUnlock()
	if !ok {
		log.WithField("connection_id", connectionID).Warnf("hub cannot deliver '%s' to unknown subscriber", event)
		return
	}

	data, err := message.Marshal(event, payload)
	if err != nil {
		log.Errorf("hub failed to marshal event '%s': %v", event, err)
		return
	}

	if !sub.Send(data) {
		log.WithField("connection_id", connectionID).Warnf("hub skipped stale subscriber for event '%s'", event)
	}
}

func (h *Hub) relayWorker() {
	defer h.wg.Done()

	for {
		select {
		case e := <-h.relayCh:
			h.RLock()
			relays := h.relays
			h.RUnlock()

			for _, r := range relays {
				if err := r.Relay(e.event, e.payload); err != nil {
					log.Errorf("hub relay '%s' failed for event '%s': %v", r.Name(), e.event, err)
				}
			}
		case <-h.stopCh:
			return
		}
	}
}
