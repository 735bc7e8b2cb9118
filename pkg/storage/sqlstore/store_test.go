package sqlstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/storage"
	"github.com/kritgpt/matstat/pkg/storage/storagetest"
)

func openTempDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "matstat.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if _, err := Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Interface {
		return NewStore(openTempDB(t))
	})
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTempDB(t)

	n, err := Migrate(db)
	if err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	if n != 0 {
		t.Fatalf("applied migrations = %d, want 0", n)
	}
}

func TestSingleActiveSessionIsEnforced(t *testing.T) {
	s := NewStore(openTempDB(t))
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	first := &model.Session{StartTime: now, Status: model.SessionStatusActive}
	if err := s.Sessions().Create(first); err != nil {
		t.Fatalf("create first session: %v", err)
	}

	second := &model.Session{StartTime: now.Add(time.Second), Status: model.SessionStatusActive}
	if err := s.Sessions().Create(second); err == nil {
		t.Fatal("create second active session: expected constraint error")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"matstat.db", "matstat.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"file:matstat.db?mode=rwc", "file:matstat.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"matstat.db?_pragma=journal_mode(WAL)", "matstat.db?_pragma=journal_mode(WAL)"},
	}

	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMicrosRoundTrip(t *testing.T) {
	in := time.Date(2024, time.March, 1, 9, 30, 15, 123456000, time.FixedZone("CET", 3600))
	got := fromMicros(toMicros(in))
	if !got.Equal(in) {
		t.Fatalf("round trip = %v, want %v", got, in)
	}
	if got.Location() != time.UTC {
		t.Fatalf("location = %v, want UTC", got.Location())
	}
}
