package training

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/kritgpt/matstat/pkg/model"
)

// Batch is one submission of simultaneous sensor values. Sensors are kept
// raw so that invalid entries can be dropped one by one and the batch can be
// forwarded as it was received.
type Batch struct {
	Timestamp *int64            `json:"timestamp"`
	Sensors   []json.RawMessage `json:"sensors"`
}

// SensorEntry is a single element of Batch.Sensors.
type SensorEntry struct {
	ID     *int64   `json:"id"`
	Output *float64 `json:"output"`
}

// DecodeBatch parses a JSON payload. Payloads that are not a JSON object or
// carry wrongly typed timestamp or sensors fields are malformed.
func DecodeBatch(data []byte) (*Batch, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewMalformedBatchError("No data provided")
	}

	b := &Batch{}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, NewMalformedBatchError("Invalid data format")
	}

	return b, nil
}

func (b *Batch) validate() error {
	if b == nil {
		return NewMalformedBatchError("No data provided")
	}
	if b.Timestamp == nil || b.Sensors == nil {
		return NewMalformedBatchError("Invalid data format")
	}
	return nil
}

// filterEntries turns the valid entries into readings of the given session.
// Entries without an integer id or a numeric output are returned as dropped.
func (b *Batch) filterEntries(sessionID int64, receivedAt time.Time) (valid []model.Reading, dropped []json.RawMessage) {
	valid = make([]model.Reading, 0, len(b.Sensors))

	for _, raw := range b.Sensors {
		e := SensorEntry{}
		if err := json.Unmarshal(raw, &e); err != nil || e.ID == nil || e.Output == nil {
			dropped = append(dropped, raw)
			continue
		}

		valid = append(valid, model.Reading{
			SessionID:       sessionID,
			DeviceTimestamp: *b.Timestamp,
			SensorID:        *e.ID,
			Output:          *e.Output,
			ReceivedAt:      receivedAt,
		})
	}

	return valid, dropped
}
