package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/training"
)

type SessionResource struct {
	ID           int64      `json:"id"`
	TrainingType string     `json:"training_type"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Status       string     `json:"status"`
}

type SessionListResource struct {
	Members []*SessionResource `json:"members"`
}

// SessionStartedResource is returned when a session was started.
type SessionStartedResource struct {
	SessionID    int64     `json:"session_id"`
	StartTime    time.Time `json:"start_time"`
	TrainingType string    `json:"training_type"`
}

type SessionEndedResource struct {
	Message string                  `json:"message"`
	Session *SessionSummaryResource `json:"session"`
}

type SessionSummaryResource struct {
	ID           int64     `json:"id"`
	TrainingType string    `json:"training_type"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	ReadingCount int       `json:"reading_count"`
}

// ActiveSessionResource holds a nil ActiveSession if no session is active.
type ActiveSessionResource struct {
	ActiveSession *ActiveSessionDescriptor `json:"active_session"`
}

type ActiveSessionDescriptor struct {
	ID           int64     `json:"id"`
	TrainingType string    `json:"training_type"`
	StartTime    time.Time `json:"start_time"`
	Status       string    `json:"status"`
}

// SessionStartRequest is the optional body of a start request.
type SessionStartRequest struct {
	TrainingType string `json:"trainingType"`
}

func NewSession(m *model.Session) (out *SessionResource) {
	out = &SessionResource{
		ID:           m.ID,
		TrainingType: m.TrainingType,
		StartTime:    m.StartTime,
		Status:       string(m.Status),
	}

	if m.EndTime != nil {
		out.EndTime = &time.Time{}
		*out.EndTime = *m.EndTime
	}

	return // out
}

func NewSessionList(m map[int64]model.Session) (out *SessionListResource) {
	out = &SessionListResource{
		Members: make([]*SessionResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewSession(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func NewSessionStarted(d *training.SessionDescriptor) *SessionStartedResource {
	return &SessionStartedResource{
		SessionID:    d.ID,
		StartTime:    d.StartTime,
		TrainingType: d.TrainingType,
	}
}

func NewSessionEnded(s *training.SessionSummary) *SessionEndedResource {
	return &SessionEndedResource{
		Message: fmt.Sprintf("Session %d ended", s.ID),
		Session: &SessionSummaryResource{
			ID:           s.ID,
			TrainingType: s.TrainingType,
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
			ReadingCount: s.ReadingCount,
		},
	}
}

func NewActiveSession(d *training.SessionDescriptor) (out *ActiveSessionResource) {
	out = &ActiveSessionResource{}
	if d == nil {
		return // out
	}

	out.ActiveSession = &ActiveSessionDescriptor{
		ID:           d.ID,
		TrainingType: d.TrainingType,
		StartTime:    d.StartTime,
		Status:       string(d.Status),
	}

	return // out
}
