package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/storage"
	"github.com/pkg/errors"
)

func newSessionStore(db *sqlx.DB) *sessionStore {
	return &sessionStore{
		db: db,
	}
}

type sessionStore struct {
	db *sqlx.DB
}

type sqlDataSession struct {
	ID           int64         `db:"id"`
	TrainingType string        `db:"training_type"`
	StartTime    int64         `db:"start_time"`
	EndTime      sql.NullInt64 `db:"end_time"`
	Status       string        `db:"status"`
}

var sqlParamsSession = []string{
	"id",
	"training_type",
	"start_time",
	"end_time",
	"status",
}

func (d *sqlDataSession) Scan(m *model.Session) error {
	if m.StartTime.IsZero() {
		return fmt.Errorf("session start time is required")
	}

	d.ID = m.ID
	d.TrainingType = m.TrainingType
	d.StartTime = toMicros(m.StartTime)
	d.EndTime = sql.NullInt64{}
	if m.EndTime != nil {
		d.EndTime = sql.NullInt64{Int64: toMicros(*m.EndTime), Valid: true}
	}
	d.Status = string(m.Status)

	return nil
}

func (d *sqlDataSession) Model() (*model.Session, error) {
	m := &model.Session{
		ID:           d.ID,
		TrainingType: d.TrainingType,
		StartTime:    fromMicros(d.StartTime),
		Status:       model.SessionStatus(d.Status),
	}
	if d.EndTime.Valid {
		t := fromMicros(d.EndTime.Int64)
		m.EndTime = &t
	}

	return m, nil
}

func (s *sessionStore) FetchAll() (map[int64]model.Session, error) {
	rows := make([]sqlDataSession, 0)
	models := make(map[int64]model.Session)

	query := "SELECT * FROM training_sessions ORDER BY id"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all sessions")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to session model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *sessionStore) FindByID(id int64) (*model.Session, error) {
	d := sqlDataSession{}
	query := s.db.Rebind("SELECT * FROM training_sessions WHERE id=?")
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find session")
	}

	return d.Model()
}

func (s *sessionStore) FindActive() (*model.Session, error) {
	d := sqlDataSession{}
	query := s.db.Rebind("SELECT * FROM training_sessions WHERE status=? ORDER BY start_time DESC, id DESC LIMIT 1")
	if err := s.db.Get(&d, query, string(model.SessionStatusActive)); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find active session")
	}

	return d.Model()
}

func (s *sessionStore) FetchActive() ([]model.Session, error) {
	rows := make([]sqlDataSession, 0)
	query := s.db.Rebind("SELECT * FROM training_sessions WHERE status=? ORDER BY start_time, id")
	if err := s.db.Select(&rows, query, string(model.SessionStatusActive)); err != nil {
		return nil, errors.Wrap(err, "failed to fetch active sessions")
	}

	models := make([]model.Session, 0, len(rows))
	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to session model")
		}
		models = append(models, *m)
	}

	return models, nil
}

func (s *sessionStore) Create(m *model.Session) error {
	d := sqlDataSession{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert session model to SQL data")
	}

	// Remove the id column because it's assigned by the database
	sqlParamsWithoutID := make([]string, 0)
	for _, p := range sqlParamsSession {
		if p != "id" {
			sqlParamsWithoutID = append(sqlParamsWithoutID, p)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO training_sessions (%s) VALUES (%s) RETURNING id",
		strings.Join(sqlParamsWithoutID, ", "),
		":"+strings.Join(sqlParamsWithoutID, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, "failed to create session")
		}
		return errors.New("failed to create session: no id returned")
	}

	return errors.Wrap(rows.Scan(&m.ID), "failed to read session id")
}

func (s *sessionStore) Update(m *model.Session) error {
	d := sqlDataSession{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert session model to SQL data")
	}

	var queryParams []string
	for _, param := range sqlParamsSession {
		if param != "id" {
			queryParams = append(queryParams, fmt.Sprintf("%s=:%s", param, param))
		}
	}
	query := fmt.Sprintf("UPDATE training_sessions SET %s WHERE id=:id", strings.Join(queryParams, ", "))
	res, err := s.db.NamedExec(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to update session")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update session")
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *sessionStore) Delete(id int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(tx.Rebind("DELETE FROM sensor_readings WHERE session_id=?"), id); err != nil {
		return errors.Wrap(err, "failed to delete session readings")
	}

	res, err := tx.Exec(tx.Rebind("DELETE FROM training_sessions WHERE id=?"), id)
	if err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	return errors.Wrap(tx.Commit(), "failed to commit session deletion")
}
