package memory

import (
	"sort"
	"sync"

	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/storage"
)

type sessionStore struct {
	store    map[int64]model.Session
	nextID   int64
	readings *readingStore
	sync.RWMutex
}

func newSessionStore(readings *readingStore) *sessionStore {
	return &sessionStore{
		store:    make(map[int64]model.Session),
		nextID:   1,
		readings: readings,
	}
}

func (s *sessionStore) FetchAll() (models map[int64]model.Session, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int64]model.Session, len(s.store))

	for id, m := range s.store {
		models[id] = copySession(m)
	}

	return models, nil
}

func (s *sessionStore) FindByID(id int64) (*model.Session, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		m = copySession(m)
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *sessionStore) FindActive() (*model.Session, error) {
	active, err := s.FetchActive()
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, storage.ErrNotFound
	}

	m := active[len(active)-1]
	return &m, nil
}

func (s *sessionStore) FetchActive() ([]model.Session, error) {
	s.RLock()
	defer s.RUnlock()

	models := make([]model.Session, 0)
	for _, m := range s.store {
		if m.IsActive() {
			models = append(models, copySession(m))
		}
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})

	return models, nil
}

func (s *sessionStore) Create(m *model.Session) error {
	s.Lock()
	defer s.Unlock()

	m.ID = s.getNextID()
	s.store[m.ID] = copySession(*m)

	return nil
}

func (s *sessionStore) Update(m *model.Session) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[m.ID]; !ok {
		return storage.ErrNotFound
	}

	s.store[m.ID] = copySession(*m)

	return nil
}

func (s *sessionStore) Delete(id int64) error {
	s.Lock()
	defer s.Unlock()

	_, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	s.readings.deleteBySession(id)
	delete(s.store, id)

	return nil
}

func (s *sessionStore) getNextID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// copySession detaches the EndTime pointer from the stored value.
func copySession(m model.Session) model.Session {
	if m.EndTime != nil {
		t := *m.EndTime
		m.EndTime = &t
	}
	return m
}
