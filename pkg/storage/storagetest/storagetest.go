// Package storagetest holds behaviour tests shared by all storage.Interface
// implementations.
package storagetest

import (
	"testing"
	"time"

	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/storage"
	"github.com/pkg/errors"
)

// Run runs every test against stores created by newStore. Each test gets a
// fresh store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Interface) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Interface)
	}{
		{"SessionRoundTrip", testSessionRoundTrip},
		{"SessionNotFound", testSessionNotFound},
		{"FindActive", testFindActive},
		{"CreateBatch", testCreateBatch},
		{"CreateBatchUnknownSession", testCreateBatchUnknownSession},
		{"DeleteCascades", testDeleteCascades},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var start = time.Date(2024, time.March, 1, 9, 30, 15, 123456000, time.UTC)

func createSession(t *testing.T, s storage.Interface, at time.Time) *model.Session {
	t.Helper()

	m := &model.Session{
		TrainingType: "strength",
		StartTime:    at,
		Status:       model.SessionStatusActive,
	}
	if err := s.Sessions().Create(m); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if m.ID == 0 {
		t.Fatal("create session did not assign an id")
	}
	return m
}

func complete(t *testing.T, s storage.Interface, m *model.Session, at time.Time) {
	t.Helper()

	m.EndTime = &at
	m.Status = model.SessionStatusCompleted
	if err := s.Sessions().Update(m); err != nil {
		t.Fatalf("update session: %v", err)
	}
}

func testSessionRoundTrip(t *testing.T, s storage.Interface) {
	m := createSession(t, s, start)

	got, err := s.Sessions().FindByID(m.ID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if !got.StartTime.Equal(start) {
		t.Fatalf("start_time = %v, want %v", got.StartTime, start)
	}
	if got.EndTime != nil {
		t.Fatalf("end_time = %v, want nil", got.EndTime)
	}
	if got.TrainingType != "strength" {
		t.Fatalf("training_type = %q, want %q", got.TrainingType, "strength")
	}

	end := start.Add(90 * time.Minute)
	complete(t, s, m, end)

	got, err = s.Sessions().FindByID(m.ID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if got.Status != model.SessionStatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, model.SessionStatusCompleted)
	}
	if got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Fatalf("end_time = %v, want %v", got.EndTime, end)
	}

	all, err := s.Sessions().FetchAll()
	if err != nil {
		t.Fatalf("fetch sessions: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(all))
	}
}

func testSessionNotFound(t *testing.T, s storage.Interface) {
	if _, err := s.Sessions().FindByID(42); errors.Cause(err) != storage.ErrNotFound {
		t.Fatalf("find unknown session error = %v, want %v", err, storage.ErrNotFound)
	}
	if _, err := s.Sessions().FindActive(); errors.Cause(err) != storage.ErrNotFound {
		t.Fatalf("find active error = %v, want %v", err, storage.ErrNotFound)
	}

	m := &model.Session{ID: 42, StartTime: start, Status: model.SessionStatusCompleted}
	if err := s.Sessions().Update(m); errors.Cause(err) != storage.ErrNotFound {
		t.Fatalf("update unknown session error = %v, want %v", err, storage.ErrNotFound)
	}
	if err := s.Sessions().Delete(42); errors.Cause(err) != storage.ErrNotFound {
		t.Fatalf("delete unknown session error = %v, want %v", err, storage.ErrNotFound)
	}
}

func testFindActive(t *testing.T, s storage.Interface) {
	first := createSession(t, s, start)
	complete(t, s, first, start.Add(time.Minute))
	second := createSession(t, s, start.Add(2*time.Minute))

	got, err := s.Sessions().FindActive()
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("active id = %d, want %d", got.ID, second.ID)
	}

	active, err := s.Sessions().FetchActive()
	if err != nil {
		t.Fatalf("fetch active: %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID {
		t.Fatalf("active sessions = %+v, want only %d", active, second.ID)
	}
}

func testCreateBatch(t *testing.T, s storage.Interface) {
	m := createSession(t, s, start)
	received := start.Add(time.Second)

	batch := []model.Reading{
		{SessionID: m.ID, DeviceTimestamp: 1000, SensorID: 0, Output: 90.1, ReceivedAt: received},
		{SessionID: m.ID, DeviceTimestamp: 1000, SensorID: 1, Output: 89.7, ReceivedAt: received},
	}
	if err := s.Readings().CreateBatch(batch); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if batch[0].ID == 0 || batch[1].ID == 0 || batch[0].ID == batch[1].ID {
		t.Fatalf("reading ids = %d, %d, want distinct non zero ids", batch[0].ID, batch[1].ID)
	}

	got, err := s.Readings().FetchBySession(m.ID)
	if err != nil {
		t.Fatalf("fetch readings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(readings) = %d, want 2", len(got))
	}
	if got[0].SensorID != 0 || got[0].Output != 90.1 {
		t.Fatalf("first reading = %+v, want sensor 0 output 90.1", got[0])
	}
	if !got[1].ReceivedAt.Equal(received) {
		t.Fatalf("received_at = %v, want %v", got[1].ReceivedAt, received)
	}

	n, err := s.Readings().CountBySession(m.ID)
	if err != nil {
		t.Fatalf("count readings: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func testCreateBatchUnknownSession(t *testing.T, s storage.Interface) {
	m := createSession(t, s, start)

	batch := []model.Reading{
		{SessionID: m.ID, DeviceTimestamp: 1, SensorID: 0, Output: 1, ReceivedAt: start},
		{SessionID: m.ID + 100, DeviceTimestamp: 1, SensorID: 1, Output: 2, ReceivedAt: start},
	}
	if err := s.Readings().CreateBatch(batch); err == nil {
		t.Fatal("create batch with unknown session: expected error")
	}

	n, err := s.Readings().CountBySession(m.ID)
	if err != nil {
		t.Fatalf("count readings: %v", err)
	}
	if n != 0 {
		t.Fatalf("count = %d, want 0 after rejected batch", n)
	}
}

func testDeleteCascades(t *testing.T, s storage.Interface) {
	keep := createSession(t, s, start)
	complete(t, s, keep, start.Add(time.Minute))
	drop := createSession(t, s, start.Add(2*time.Minute))
	complete(t, s, drop, start.Add(3*time.Minute))

	for _, id := range []int64{keep.ID, drop.ID} {
		batch := []model.Reading{{SessionID: id, DeviceTimestamp: 1, SensorID: 0, Output: 1, ReceivedAt: start}}
		if err := s.Readings().CreateBatch(batch); err != nil {
			t.Fatalf("create batch: %v", err)
		}
	}

	if err := s.Sessions().Delete(drop.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if _, err := s.Sessions().FindByID(drop.ID); errors.Cause(err) != storage.ErrNotFound {
		t.Fatalf("find deleted session error = %v, want %v", err, storage.ErrNotFound)
	}
	if n, _ := s.Readings().CountBySession(drop.ID); n != 0 {
		t.Fatalf("readings of deleted session = %d, want 0", n)
	}
	if n, _ := s.Readings().CountBySession(keep.ID); n != 1 {
		t.Fatalf("readings of kept session = %d, want 1", n)
	}
}
