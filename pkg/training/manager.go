// Package training owns the single active training session and the
// admission of sensor batches into it.
package training

import (
	"fmt"
	"sync"
	"time"

	"github.com/kritgpt/matstat/pkg/broadcast/message"
	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/storage"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultTrainingType = "unknown"

// Publisher delivers events to connected subscribers. Implementations must
// not block and must not report delivery failures.
type Publisher interface {
	Publish(event string, payload interface{})
	PublishTo(connectionID string, event string, payload interface{})
}

type SessionDescriptor struct {
	ID           int64
	TrainingType string
	StartTime    time.Time
	Status       model.SessionStatus
}

type SessionSummary struct {
	ID           int64
	TrainingType string
	StartTime    time.Time
	EndTime      time.Time
	ReadingCount int
}

// Manager serializes session transitions. The active session id is only
// changed while mu is held for writing; ingestion holds it for reading so
// that a batch is never attributed to a session that ended meanwhile.
type Manager struct {
	mu       sync.RWMutex
	activeID int64

	sessions storage.SessionStore
	readings storage.ReadingStore
	pub      Publisher
	now      func() time.Time
}

func NewManager(store storage.Interface, pub Publisher) *Manager {
	return &Manager{
		sessions: store.Sessions(),
		readings: store.Readings(),
		pub:      pub,
		now:      now,
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Recover loads the persisted active session into the manager. It is called
// once on startup. Older sessions that are still marked active are closed.
func (mgr *Manager) Recover() error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	active, err := mgr.sessions.FetchActive()
	if err != nil {
		return NewPersistenceError("failed to load active sessions", err)
	}
	if len(active) == 0 {
		mgr.activeID = 0
		return nil
	}

	latest := active[len(active)-1]
	for i := range active[:len(active)-1] {
		stale := active[i]
		end := mgr.now()
		stale.EndTime = &end
		stale.Status = model.SessionStatusCompleted
		if err := mgr.sessions.Update(&stale); err != nil {
			return NewPersistenceError(fmt.Sprintf("failed to close stale session %d", stale.ID), err)
		}
		log.WithField("session_id", stale.ID).Warn("manager closed stale active session")
	}

	mgr.activeID = latest.ID
	log.WithField("session_id", latest.ID).Info("manager recovered active session")

	return nil
}

// StartSession opens a new session unless one is already active.
func (mgr *Manager) StartSession(trainingType string) (*SessionDescriptor, error) {
	if trainingType == "" {
		trainingType = DefaultTrainingType
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	existing, err := mgr.sessions.FindActive()
	if err == nil {
		if mgr.activeID != existing.ID {
			log.WithField("session_id", existing.ID).Warn("manager adopted active session found in store")
			mgr.activeID = existing.ID
		}
		return nil, NewConflictError("Another session is already active")
	}
	if errors.Cause(err) != storage.ErrNotFound {
		log.Errorf("manager failed to look up active session: %v", err)
		return nil, NewPersistenceError("Failed to start session due to database error", err)
	}

	m := model.Session{
		TrainingType: trainingType,
		StartTime:    mgr.now(),
		Status:       model.SessionStatusActive,
	}
	if err := mgr.sessions.Create(&m); err != nil {
		log.Errorf("manager failed to create session: %v", err)
		return nil, NewPersistenceError("Failed to start session due to database error", err)
	}
	mgr.activeID = m.ID

	log.WithFields(log.Fields{
		"session_id":    m.ID,
		"training_type": m.TrainingType,
	}).Info("manager started session")

	mgr.pub.Publish(message.EventSessionStarted, &message.SessionStarted{
		SessionID:    m.ID,
		StartTime:    m.StartTime,
		TrainingType: m.TrainingType,
	})

	return newSessionDescriptor(&m), nil
}

// EndSession completes the active session.
func (mgr *Manager) EndSession() (*SessionSummary, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if mgr.activeID == 0 {
		return nil, NewNotFoundError("No active session to end")
	}

	m, err := mgr.sessions.FindByID(mgr.activeID)
	if errors.Cause(err) == storage.ErrNotFound {
		log.WithField("session_id", mgr.activeID).Warn("manager cleared active session missing in store")
		mgr.activeID = 0
		return nil, NewInconsistentStateError("Active session not found in database")
	}
	if err != nil {
		log.Errorf("manager failed to load active session: %v", err)
		return nil, NewPersistenceError("Failed to end session due to database error", err)
	}
	if !m.IsActive() {
		log.WithFields(log.Fields{
			"session_id": m.ID,
			"status":     m.Status,
		}).Warn("manager ends session which is not marked active")
	}

	end := mgr.now()
	m.EndTime = &end
	m.Status = model.SessionStatusCompleted
	if err := mgr.sessions.Update(m); err != nil {
		log.Errorf("manager failed to complete session: %v", err)
		return nil, NewPersistenceError("Failed to end session due to database error", err)
	}
	mgr.activeID = 0

	count, err := mgr.readings.CountBySession(m.ID)
	if err != nil {
		log.Warnf("manager could not count readings of session %d: %v", m.ID, err)
	}

	log.WithFields(log.Fields{
		"session_id": m.ID,
		"readings":   count,
	}).Info("manager ended session")

	mgr.pub.Publish(message.EventSessionEnded, &message.SessionEnded{
		SessionID: m.ID,
	})

	return &SessionSummary{
		ID:           m.ID,
		TrainingType: m.TrainingType,
		StartTime:    m.StartTime,
		EndTime:      end,
		ReadingCount: count,
	}, nil
}

// GetActiveSession returns the active session or nil. A pointer to a session
// that is missing or no longer active is cleared.
func (mgr *Manager) GetActiveSession() (*SessionDescriptor, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	return mgr.activeSession()
}

// Greet calls fn with the active session, or nil if there is none, while no
// transition can happen. fn must not block.
func (mgr *Manager) Greet(fn func(desc *SessionDescriptor)) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	desc, err := mgr.activeSession()
	if err != nil {
		return err
	}
	fn(desc)

	return nil
}

// activeSession must be called with mu held for writing.
func (mgr *Manager) activeSession() (*SessionDescriptor, error) {
	if mgr.activeID == 0 {
		return nil, nil
	}

	m, err := mgr.sessions.FindByID(mgr.activeID)
	if err != nil && errors.Cause(err) != storage.ErrNotFound {
		return nil, NewPersistenceError("Failed to load active session", err)
	}
	if err != nil || !m.IsActive() {
		log.WithField("session_id", mgr.activeID).Warn("manager found inconsistency, cleared active session")
		mgr.activeID = 0
		return nil, nil
	}

	return newSessionDescriptor(m), nil
}

// DeleteSession removes a completed session and its readings. The active
// session cannot be deleted.
func (mgr *Manager) DeleteSession(id int64) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if id != 0 && id == mgr.activeID {
		return NewConflictError("Cannot delete the active session")
	}

	m, err := mgr.sessions.FindByID(id)
	if errors.Cause(err) == storage.ErrNotFound {
		return NewNotFoundError(fmt.Sprintf("Session %d not found", id))
	}
	if err != nil {
		return NewPersistenceError("Failed to load session", err)
	}
	if m.IsActive() {
		return NewConflictError("Cannot delete the active session")
	}

	if err := mgr.sessions.Delete(id); err != nil {
		return NewPersistenceError("Failed to delete session", err)
	}
	log.WithField("session_id", id).Info("manager deleted session")

	return nil
}

// IsActive reports whether id is the active session.
func (mgr *Manager) IsActive(id int64) bool {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return id != 0 && mgr.activeID == id
}

// withActiveSession runs fn with the active session id while no transition
// can happen. Several callers may run concurrently.
func (mgr *Manager) withActiveSession(fn func(sessionID int64) error) error {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	if mgr.activeID == 0 {
		return NewNoActiveSessionError()
	}

	return fn(mgr.activeID)
}

func newSessionDescriptor(m *model.Session) *SessionDescriptor {
	return &SessionDescriptor{
		ID:           m.ID,
		TrainingType: m.TrainingType,
		StartTime:    m.StartTime,
		Status:       m.Status,
	}
}
