// Package message defines the events exchanged over the realtime channel.
// Every frame is an Envelope; Data holds one of the payload types below.
package message

import (
	"encoding/json"
	"time"

	"github.com/kritgpt/matstat/pkg/model"
)

// Server to client events
const (
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
	EventSessionError   = "session_error"
	EventSensorUpdate   = "sensor_update"
)

// Client to server events
const (
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Marshal encodes event and payload into one frame.
func Marshal(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

type SessionStarted struct {
	SessionID    int64     `json:"session_id"`
	StartTime    time.Time `json:"start_time"`
	TrainingType string    `json:"training_type,omitempty"`
}

type SessionEnded struct {
	SessionID int64 `json:"session_id"`
}

type SessionError struct {
	Message string `json:"message"`
}

// SensorUpdate carries a batch as it was submitted, annotated with the
// session it was attributed to. Readings holds the persisted subset for
// in-process relays and is never serialized.
type SensorUpdate struct {
	Timestamp int64             `json:"timestamp"`
	Sensors   []json.RawMessage `json:"sensors"`
	SessionID int64             `json:"session_id"`

	Readings []model.Reading `json:"-"`
}

// SessionStart is sent by clients to open a session.
type SessionStart struct {
	TrainingType string `json:"trainingType"`
}
