package model

import "time"

// Reading is a single sensor value of a batch. All readings of one batch
// share the same DeviceTimestamp and ReceivedAt.
type Reading struct {
	ID              int64
	SessionID       int64
	DeviceTimestamp int64
	SensorID        int64
	Output          float64
	ReceivedAt      time.Time
}
