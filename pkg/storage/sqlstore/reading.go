package sqlstore

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/kritgpt/matstat/pkg/model"
	"github.com/pkg/errors"
)

func newReadingStore(db *sqlx.DB) *readingStore {
	return &readingStore{
		db: db,
	}
}

type readingStore struct {
	db *sqlx.DB
}

type sqlDataReading struct {
	ID              int64   `db:"id"`
	SessionID       int64   `db:"session_id"`
	DeviceTimestamp int64   `db:"device_timestamp"`
	SensorID        int64   `db:"sensor_id"`
	Output          float64 `db:"output"`
	ReceivedTime    int64   `db:"received_time"`
}

var sqlParamsReading = []string{
	"session_id",
	"device_timestamp",
	"sensor_id",
	"output",
	"received_time",
}

func (d *sqlDataReading) Scan(m *model.Reading) {
	d.ID = m.ID
	d.SessionID = m.SessionID
	d.DeviceTimestamp = m.DeviceTimestamp
	d.SensorID = m.SensorID
	d.Output = m.Output
	d.ReceivedTime = toMicros(m.ReceivedAt)
}

func (d *sqlDataReading) Model() model.Reading {
	return model.Reading{
		ID:              d.ID,
		SessionID:       d.SessionID,
		DeviceTimestamp: d.DeviceTimestamp,
		SensorID:        d.SensorID,
		Output:          d.Output,
		ReceivedAt:      fromMicros(d.ReceivedTime),
	}
}

// CreateBatch inserts all readings in one transaction. IDs are only written
// back to ms once the transaction is committed.
func (s *readingStore) CreateBatch(ms []model.Reading) error {
	if len(ms) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		"INSERT INTO sensor_readings (%s) VALUES (%s) RETURNING id",
		strings.Join(sqlParamsReading, ", "),
		":"+strings.Join(sqlParamsReading, ", :"),
	)
	stmt, err := tx.PrepareNamed(query)
	if err != nil {
		return errors.Wrap(err, "failed to prepare reading insert")
	}
	defer stmt.Close()

	ids := make([]int64, len(ms))
	for i := range ms {
		d := sqlDataReading{}
		d.Scan(&ms[i])
		if err := stmt.QueryRowx(d).Scan(&ids[i]); err != nil {
			return errors.Wrap(err, "failed to create reading")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit readings")
	}

	for i := range ms {
		ms[i].ID = ids[i]
	}

	return nil
}

func (s *readingStore) FetchBySession(sessionID int64) ([]model.Reading, error) {
	rows := make([]sqlDataReading, 0)
	query := s.db.Rebind("SELECT * FROM sensor_readings WHERE session_id=? ORDER BY id")
	if err := s.db.Select(&rows, query, sessionID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch readings")
	}

	models := make([]model.Reading, 0, len(rows))
	for _, d := range rows {
		models = append(models, d.Model())
	}

	return models, nil
}

func (s *readingStore) CountBySession(sessionID int64) (int, error) {
	var n int
	query := s.db.Rebind("SELECT COUNT(*) FROM sensor_readings WHERE session_id=?")
	if err := s.db.Get(&n, query, sessionID); err != nil {
		return 0, errors.Wrap(err, "failed to count readings")
	}

	return n, nil
}
