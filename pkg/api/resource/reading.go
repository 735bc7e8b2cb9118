package resource

import (
	"time"

	"github.com/kritgpt/matstat/pkg/model"
)

type ReadingResource struct {
	ID              int64     `json:"id"`
	SessionID       int64     `json:"session_id"`
	DeviceTimestamp int64     `json:"device_timestamp"`
	SensorID        int64     `json:"sensor_id"`
	Output          float64   `json:"output"`
	ReceivedAt      time.Time `json:"received_at"`
}

type ReadingListResource struct {
	SessionID int64              `json:"session_id"`
	Members   []*ReadingResource `json:"members"`
}

func NewReading(m *model.Reading) *ReadingResource {
	return &ReadingResource{
		ID:              m.ID,
		SessionID:       m.SessionID,
		DeviceTimestamp: m.DeviceTimestamp,
		SensorID:        m.SensorID,
		Output:          m.Output,
		ReceivedAt:      m.ReceivedAt,
	}
}

// NewReadingList keeps the order of ms.
func NewReadingList(sessionID int64, ms []model.Reading) (out *ReadingListResource) {
	out = &ReadingListResource{
		SessionID: sessionID,
		Members:   make([]*ReadingResource, 0, len(ms)),
	}

	for i := range ms {
		out.Members = append(out.Members, NewReading(&ms[i]))
	}

	return // out
}
