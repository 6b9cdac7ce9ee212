// Package store is the pipeline's append-only track birth/death event log,
// a supplement to the distilled spec (SPEC_FULL §12): every track's birth
// and eviction is recorded so an operator can audit track churn after the
// fact without replaying video.
package store

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// Store is the sqlite-backed event log. It implements tracker.EventSink.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens (creating if necessary) the sqlite database at path and runs
// every pending migration found in migrationsDir. logger may be nil, in
// which case log.Default() is used to report per-event write failures —
// insertEvent runs off the Tracker's cleanup/create phases (§7 category 3)
// and must never block or panic the tracker, so failures are logged, not
// returned.
func Open(path, migrationsDir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "store: opening %s", path)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrateUp(migrationsDir); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp(migrationsDir string) error {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return errors.Wrap(err, "store: resolving migrations directory")
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "store: creating sqlite migration driver")
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", absPath), "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "store: creating migrate instance")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "store: running migrations")
	}
	return nil
}

// TrackBorn implements tracker.EventSink.
func (s *Store) TrackBorn(id uint64, typ model.Type, at time.Time) {
	s.insertEvent(id, typ, "birth", at)
}

// TrackDied implements tracker.EventSink.
func (s *Store) TrackDied(id uint64, typ model.Type, at time.Time) {
	s.insertEvent(id, typ, "death", at)
}

func (s *Store) insertEvent(id uint64, typ model.Type, event string, at time.Time) {
	if _, err := s.db.Exec(
		`INSERT INTO track_events (track_id, type, event, at_unix_nanos) VALUES (?, ?, ?, ?)`,
		id, typ.String(), event, at.UnixNano(),
	); err != nil {
		s.logger.Printf("store: recording %s event for track %d: %v", event, id, err)
	}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
