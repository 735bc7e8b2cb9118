// Package influx mirrors persisted sensor readings into an InfluxDB bucket.
// Only sensor_update events are written, other events are ignored.
package influx

import (
	"context"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/kritgpt/matstat/pkg/broadcast/message"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	measurement  = "sensor_reading"
	writeTimeout = 5 * time.Second
)

type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func New(cfg *Config) *Writer {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func (r *Writer) Name() string {
	return "influx"
}

func (r *Writer) Relay(event string, payload interface{}) error {
	if event != message.EventSensorUpdate {
		return nil
	}

	u, ok := payload.(*message.SensorUpdate)
	if !ok {
		return errors.Errorf("unexpected payload %T for event '%s'", payload, event)
	}

	points := pointsFromUpdate(u)
	if len(points) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.writeAPI.WritePoint(ctx, points...); err != nil {
		return errors.Wrap(err, "error writing to influxdb")
	}
	log.Debugf("influx relay wrote %d points for session %d", len(points), u.SessionID)
	return nil
}

func (r *Writer) Close() {
	r.client.Close()
}

func pointsFromUpdate(u *message.SensorUpdate) []*write.Point {
	points := make([]*write.Point, 0, len(u.Readings))
	for _, rd := range u.Readings {
		points = append(points, influxdb2.NewPoint(
			measurement,
			map[string]string{
				"session_id": strconv.FormatInt(rd.SessionID, 10),
				"sensor_id":  strconv.FormatInt(rd.SensorID, 10),
			},
			map[string]interface{}{
				"output":           rd.Output,
				"device_timestamp": rd.DeviceTimestamp,
			},
			rd.ReceivedAt,
		))
	}
	return points
}
