package training

import (
	"time"

	"github.com/kritgpt/matstat/pkg/broadcast/message"
	"github.com/kritgpt/matstat/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// Gateway admits sensor batches into the active session.
type Gateway struct {
	mgr      *Manager
	readings storage.ReadingStore
	pub      Publisher
	now      func() time.Time
}

func NewGateway(mgr *Manager, store storage.Interface, pub Publisher) *Gateway {
	return &Gateway{
		mgr:      mgr,
		readings: store.Readings(),
		pub:      pub,
		now:      now,
	}
}

// SubmitBatch persists the valid entries of b in the active session and
// broadcasts the batch once they are committed. It returns the number of
// persisted readings.
func (gw *Gateway) SubmitBatch(b *Batch) (int, error) {
	accepted := 0
	err := gw.mgr.withActiveSession(func(sessionID int64) (err error) {
		accepted, err = gw.submit(sessionID, b)
		return err
	})
	return accepted, err
}

// SubmitPayload decodes a JSON batch and submits it. A missing active
// session is reported before any decoding error.
func (gw *Gateway) SubmitPayload(data []byte) (int, error) {
	accepted := 0
	err := gw.mgr.withActiveSession(func(sessionID int64) error {
		b, err := DecodeBatch(data)
		if err != nil {
			return err
		}
		accepted, err = gw.submit(sessionID, b)
		return err
	})
	return accepted, err
}

func (gw *Gateway) submit(sessionID int64, b *Batch) (int, error) {
	if err := b.validate(); err != nil {
		return 0, err
	}

	readings, dropped := b.filterEntries(sessionID, gw.now())
	for _, raw := range dropped {
		log.WithField("session_id", sessionID).Warnf("gateway skipping invalid sensor entry: %s", string(raw))
	}
	if len(readings) == 0 {
		return 0, NewEmptyBatchError()
	}

	if err := gw.readings.CreateBatch(readings); err != nil {
		log.WithField("session_id", sessionID).Errorf("gateway failed to persist readings: %v", err)
		return 0, NewPersistenceError("Failed to save sensor data", err)
	}

	log.WithFields(log.Fields{
		"session_id": sessionID,
		"accepted":   len(readings),
		"dropped":    len(dropped),
	}).Debug("gateway persisted batch")

	// Committed, nothing below may fail the submission.
	gw.pub.Publish(message.EventSensorUpdate, &message.SensorUpdate{
		Timestamp: *b.Timestamp,
		Sensors:   b.Sensors,
		SessionID: sessionID,
		Readings:  readings,
	})

	return len(readings), nil
}
