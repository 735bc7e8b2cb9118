package memory

import "github.com/kritgpt/matstat/pkg/storage"

// Store contains all memory-based sub-stores for managing the persistent models
type store struct {
	sessions *sessionStore
	readings *readingStore
}

// NewStore creates a new memory-based Storage interface
func NewStore() storage.Interface {
	readingStore := newReadingStore()
	sessionStore := newSessionStore(readingStore)
	readingStore.sessions = sessionStore

	return &store{
		sessions: sessionStore,
		readings: readingStore,
	}
}

// Sessions returns a sub-store for managing the Session model
func (s *store) Sessions() storage.SessionStore {
	return s.sessions
}

// Readings returns a sub-store for managing the Reading model
func (s *store) Readings() storage.ReadingStore {
	return s.readings
}

func (s *store) Close() error {
	return nil
}
