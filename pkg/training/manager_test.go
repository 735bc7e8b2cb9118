package training

import (
	"sync"
	"testing"
	"time"

	"github.com/kritgpt/matstat/pkg/broadcast/message"
	"github.com/kritgpt/matstat/pkg/model"
)

func TestStartSession(t *testing.T) {
	mgr, _, pub := newTestManager()

	d, err := mgr.StartSession("")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if d.TrainingType != DefaultTrainingType {
		t.Fatalf("training_type = %q, want %q", d.TrainingType, DefaultTrainingType)
	}
	if d.StartTime.Location() != time.UTC || d.StartTime.Nanosecond()%1000 != 0 {
		t.Fatalf("start_time = %v, want UTC truncated to microseconds", d.StartTime)
	}

	active, err := mgr.GetActiveSession()
	if err != nil {
		t.Fatalf("get active session: %v", err)
	}
	if active == nil || active.ID != d.ID {
		t.Fatalf("active session = %+v, want id %d", active, d.ID)
	}
	if active.Status != model.SessionStatusActive {
		t.Fatalf("status = %q, want %q", active.Status, model.SessionStatusActive)
	}

	started := pub.named(message.EventSessionStarted)
	if len(started) != 1 {
		t.Fatalf("session_started events = %d, want 1", len(started))
	}
	if p := started[0].payload.(*message.SessionStarted); p.SessionID != d.ID {
		t.Fatalf("session_started id = %d, want %d", p.SessionID, d.ID)
	}
}

func TestStartSessionConflict(t *testing.T) {
	mgr, _, pub := newTestManager()

	if _, err := mgr.StartSession("sprint"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	_, err := mgr.StartSession("sprint")
	if !IsConflictError(err) {
		t.Fatalf("second start error = %v, want conflict", err)
	}
	if got := len(pub.named(message.EventSessionStarted)); got != 1 {
		t.Fatalf("session_started events = %d, want 1", got)
	}
}

func TestStartSessionAdoptsPersistedActiveSession(t *testing.T) {
	mgr, store, _ := newTestManager()

	m := &model.Session{StartTime: time.Now().UTC(), Status: model.SessionStatusActive}
	if err := store.Sessions().Create(m); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := mgr.StartSession(""); !IsConflictError(err) {
		t.Fatalf("start error = %v, want conflict", err)
	}
	if !mgr.IsActive(m.ID) {
		t.Fatalf("manager did not adopt session %d", m.ID)
	}
}

func TestConcurrentStartSession(t *testing.T) {
	mgr, store, _ := newTestManager()

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.StartSession("")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case IsConflictError(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicts != n-1 {
		t.Fatalf("succeeded = %d, conflicts = %d, want 1 and %d", succeeded, conflicts, n-1)
	}

	active, err := store.Sessions().FetchActive()
	if err != nil {
		t.Fatalf("fetch active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active sessions = %d, want 1", len(active))
	}
}

func TestEndSession(t *testing.T) {
	mgr, store, pub := newTestManager()

	d, err := mgr.StartSession("endurance")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	s, err := mgr.EndSession()
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if s.ID != d.ID || s.TrainingType != "endurance" {
		t.Fatalf("summary = %+v, want id %d", s, d.ID)
	}
	if s.EndTime.Before(s.StartTime) {
		t.Fatalf("end_time %v before start_time %v", s.EndTime, s.StartTime)
	}

	active, err := mgr.GetActiveSession()
	if err != nil || active != nil {
		t.Fatalf("active session = %+v, %v, want nil", active, err)
	}

	m, err := store.Sessions().FindByID(d.ID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if m.Status != model.SessionStatusCompleted || m.EndTime == nil {
		t.Fatalf("persisted session = %+v, want completed with end time", m)
	}

	ended := pub.named(message.EventSessionEnded)
	if len(ended) != 1 || ended[0].payload.(*message.SessionEnded).SessionID != d.ID {
		t.Fatalf("session_ended events = %+v, want one for %d", ended, d.ID)
	}

	if _, err := mgr.StartSession(""); err != nil {
		t.Fatalf("start after end: %v", err)
	}
}

func TestEndSessionWithoutActiveSession(t *testing.T) {
	mgr, _, pub := newTestManager()

	if _, err := mgr.EndSession(); !IsNotFoundError(err) {
		t.Fatalf("end error = %v, want not found", err)
	}
	if got := len(pub.named(message.EventSessionEnded)); got != 0 {
		t.Fatalf("session_ended events = %d, want 0", got)
	}
}

func TestEndSessionMissingInStore(t *testing.T) {
	mgr, store, _ := newTestManager()

	d, err := mgr.StartSession("")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := store.Sessions().Delete(d.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if _, err := mgr.EndSession(); !IsInconsistentStateError(err) {
		t.Fatalf("end error = %v, want inconsistent state", err)
	}
	if mgr.IsActive(d.ID) {
		t.Fatal("active pointer was not cleared")
	}
	if _, err := mgr.EndSession(); !IsNotFoundError(err) {
		t.Fatalf("second end error = %v, want not found", err)
	}
}

func TestGetActiveSessionHealsPointer(t *testing.T) {
	mgr, store, _ := newTestManager()

	d, err := mgr.StartSession("")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	m, err := store.Sessions().FindByID(d.ID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	m.Status = model.SessionStatusCompleted
	if err := store.Sessions().Update(m); err != nil {
		t.Fatalf("update session: %v", err)
	}

	active, err := mgr.GetActiveSession()
	if err != nil {
		t.Fatalf("get active session: %v", err)
	}
	if active != nil {
		t.Fatalf("active session = %+v, want nil", active)
	}
	if mgr.IsActive(d.ID) {
		t.Fatal("active pointer was not cleared")
	}
}

func TestRecover(t *testing.T) {
	mgr, store, _ := newTestManager()

	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	older := &model.Session{StartTime: now, Status: model.SessionStatusActive}
	newer := &model.Session{StartTime: now.Add(time.Hour), Status: model.SessionStatusActive}
	for _, m := range []*model.Session{older, newer} {
		if err := store.Sessions().Create(m); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	if err := mgr.Recover(); err != nil {
		t.Fatalf("recover: %v", err)
	}

	active, err := mgr.GetActiveSession()
	if err != nil {
		t.Fatalf("get active session: %v", err)
	}
	if active == nil || active.ID != newer.ID {
		t.Fatalf("active session = %+v, want id %d", active, newer.ID)
	}

	m, err := store.Sessions().FindByID(older.ID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if m.Status != model.SessionStatusCompleted || m.EndTime == nil {
		t.Fatalf("older session = %+v, want completed", m)
	}
}

func TestDeleteSession(t *testing.T) {
	mgr, store, _ := newTestManager()

	d, err := mgr.StartSession("")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := mgr.DeleteSession(d.ID); !IsConflictError(err) {
		t.Fatalf("delete active error = %v, want conflict", err)
	}

	if _, err := mgr.EndSession(); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if err := mgr.DeleteSession(d.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.Sessions().FindByID(d.ID); err == nil {
		t.Fatal("session still exists after delete")
	}
	if err := mgr.DeleteSession(d.ID); !IsNotFoundError(err) {
		t.Fatalf("delete again error = %v, want not found", err)
	}
}

func TestDeleteSessionZeroWithoutActiveSession(t *testing.T) {
	mgr, _, _ := newTestManager()

	if err := mgr.DeleteSession(0); !IsNotFoundError(err) {
		t.Fatalf("delete 0 error = %v, want not found", err)
	}
}

func TestGreet(t *testing.T) {
	mgr, _, _ := newTestManager()

	var got *SessionDescriptor
	called := false
	if err := mgr.Greet(func(desc *SessionDescriptor) {
		called = true
		got = desc
	}); err != nil {
		t.Fatalf("greet: %v", err)
	}
	if !called || got != nil {
		t.Fatalf("greet called = %v with %+v, want nil descriptor", called, got)
	}

	d, err := mgr.StartSession("sprint")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := mgr.Greet(func(desc *SessionDescriptor) {
		got = desc
	}); err != nil {
		t.Fatalf("greet: %v", err)
	}
	if got == nil || got.ID != d.ID {
		t.Fatalf("greet descriptor = %+v, want session %d", got, d.ID)
	}
}
