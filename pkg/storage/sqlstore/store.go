// Package sqlstore implements the storage interface on top of sqlx. It
// supports PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite). Queries are
// written with '?' placeholders and rebound for the driver in use.
package sqlstore

import (
	"embed"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kritgpt/matstat/pkg/storage"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// store contains all SQL based sub-stores for managing the models
type store struct {
	db       *sqlx.DB
	sessions *sessionStore
	readings *readingStore
}

// NewStore creates a new SQL based Storage interface
func NewStore(db *sqlx.DB) storage.Interface {
	return &store{
		db:       db,
		sessions: newSessionStore(db),
		readings: newReadingStore(db),
	}
}

// Sessions returns a sub-store for managing the Session model
func (s *store) Sessions() storage.SessionStore {
	return s.sessions
}

// Readings returns a sub-store for managing the Reading model
func (s *store) Readings() storage.ReadingStore {
	return s.readings
}

func (s *store) Close() error {
	return s.db.Close()
}

// Open connects to the database and checks the connection.
func Open(driver, url string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		url = sqliteDSN(url)
	default:
		return nil, errors.Errorf("unsupported database driver '%s'", driver)
	}

	db, err := sqlx.Open(driver, url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// SQLite has a single writer. One connection avoids SQLITE_BUSY between
	// our own transactions.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate applies all pending migrations for the driver of db and returns
// the number of applied migrations.
func Migrate(db *sqlx.DB) (int, error) {
	var dialect, dir string
	switch db.DriverName() {
	case DriverPostgres:
		dialect, dir = "postgres", "postgres"
	case DriverSQLite:
		dialect, dir = "sqlite3", "sqlite"
	default:
		return 0, errors.Errorf("no migrations for database driver '%s'", db.DriverName())
	}

	migrations := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations/" + dir,
	}

	n, err := migrate.Exec(db.DB, dialect, migrations, migrate.Up)
	if err != nil {
		return n, errors.Wrap(err, "failed to apply migrations")
	}

	return n, nil
}

func sqliteDSN(url string) string {
	if strings.Contains(url, "_pragma=") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Times are stored as unix microseconds so that both dialects keep the
// exact instant.
func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}
