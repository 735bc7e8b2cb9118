package storage

import "github.com/kritgpt/matstat/pkg/model"

// Interface is implemented by the storage
type Interface interface {
	Sessions() SessionStore
	Readings() ReadingStore
	Close() error
}

// SessionStore is responsible for managing the Session model
type SessionStore interface {
	FetchAll() (map[int64]model.Session, error)
	FindByID(id int64) (*model.Session, error)
	// FindActive returns the most recently started session with status
	// active or ErrNotFound.
	FindActive() (*model.Session, error)
	// FetchActive returns every session with status active, oldest first.
	FetchActive() ([]model.Session, error)
	Create(m *model.Session) error
	Update(m *model.Session) error
	// Delete removes the session and all of its readings.
	Delete(id int64) error
}

// ReadingStore is responsible for managing the Reading model
type ReadingStore interface {
	// CreateBatch persists all readings atomically. Either every reading is
	// stored and gets its ID assigned, or none is.
	CreateBatch(ms []model.Reading) error
	FetchBySession(sessionID int64) ([]model.Reading, error)
	CountBySession(sessionID int64) (int, error)
}
