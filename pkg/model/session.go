package model

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session is a model of the persistency layer. EndTime stays nil until the
// session is completed.
type Session struct {
	ID           int64
	TrainingType string
	StartTime    time.Time
	EndTime      *time.Time
	Status       SessionStatus
}

// IsActive reports whether the persisted status is active.
func (m *Session) IsActive() bool {
	return m.Status == SessionStatusActive
}
