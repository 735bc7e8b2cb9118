package training

import (
	"sync"

	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/storage"
	"github.com/kritgpt/matstat/pkg/storage/memory"
)

type recordedEvent struct {
	connectionID string
	event        string
	payload      interface{}
}

type recordingPublisher struct {
	sync.Mutex
	events    []recordedEvent
	onPublish func(event string, payload interface{})
}

func (p *recordingPublisher) Publish(event string, payload interface{}) {
	if p.onPublish != nil {
		p.onPublish(event, payload)
	}
	p.Lock()
	defer p.Unlock()
	p.events = append(p.events, recordedEvent{event: event, payload: payload})
}

func (p *recordingPublisher) PublishTo(connectionID string, event string, payload interface{}) {
	p.Lock()
	defer p.Unlock()
	p.events = append(p.events, recordedEvent{connectionID: connectionID, event: event, payload: payload})
}

func (p *recordingPublisher) named(event string) []recordedEvent {
	p.Lock()
	defer p.Unlock()

	out := make([]recordedEvent, 0)
	for _, e := range p.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// failingReadings rejects every batch.
type failingReadings struct {
	storage.ReadingStore
	err error
}

func (r *failingReadings) CreateBatch(ms []model.Reading) error {
	return r.err
}

type storeWithReadings struct {
	storage.Interface
	readings storage.ReadingStore
}

func (s *storeWithReadings) Readings() storage.ReadingStore {
	return s.readings
}

func newTestManager() (*Manager, storage.Interface, *recordingPublisher) {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	return NewManager(store, pub), store, pub
}
