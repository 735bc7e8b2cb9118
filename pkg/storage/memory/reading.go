package memory

import (
	"sort"
	"sync"

	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/storage"
)

type readingStore struct {
	store    map[int64]model.Reading
	nextID   int64
	sessions *sessionStore
	sync.RWMutex
}

func newReadingStore() *readingStore {
	return &readingStore{
		store:  make(map[int64]model.Reading),
		nextID: 1,
	}
}

func (s *readingStore) CreateBatch(ms []model.Reading) error {
	// Lock order is sessions before readings, same as sessionStore.Delete.
	s.sessions.RLock()
	defer s.sessions.RUnlock()

	// Check every reference before touching the map, so a rejected batch
	// leaves nothing behind.
	for _, m := range ms {
		if _, ok := s.sessions.store[m.SessionID]; !ok {
			return storage.ErrUnknownSession
		}
	}

	s.Lock()
	defer s.Unlock()

	for i := range ms {
		ms[i].ID = s.getNextID()
		s.store[ms[i].ID] = ms[i]
	}

	return nil
}

func (s *readingStore) FetchBySession(sessionID int64) ([]model.Reading, error) {
	s.RLock()
	defer s.RUnlock()

	models := make([]model.Reading, 0)
	for _, m := range s.store {
		if m.SessionID == sessionID {
			models = append(models, m)
		}
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})

	return models, nil
}

func (s *readingStore) CountBySession(sessionID int64) (int, error) {
	s.RLock()
	defer s.RUnlock()

	n := 0
	for _, m := range s.store {
		if m.SessionID == sessionID {
			n++
		}
	}

	return n, nil
}

func (s *readingStore) deleteBySession(sessionID int64) {
	s.Lock()
	defer s.Unlock()

	for id, m := range s.store {
		if m.SessionID == sessionID {
			delete(s.store, id)
		}
	}
}

func (s *readingStore) getNextID() int64 {
	id := s.nextID
	s.nextID++
	return id
}
