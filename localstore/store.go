// Package localstore implements the offline-first persistence core of the
// POS application: a SQLite-backed entity store with typed repositories, a
// row-level change listener, and a durable operation-log outbox that queues
// local mutations for transmission to the remote server.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ChangeOp identifies the kind of row-level change reported by the driver.
type ChangeOp int

const (
	ChangeInsert ChangeOp = ChangeOp(sqlite3.SQLITE_INSERT)
	ChangeUpdate ChangeOp = ChangeOp(sqlite3.SQLITE_UPDATE)
	ChangeDelete ChangeOp = ChangeOp(sqlite3.SQLITE_DELETE)
)

// Change is one low-level change notification. It carries no payload; the
// listener re-fetches the row by RowID to learn its current state.
type Change struct {
	Op       ChangeOp
	Database string
	Table    string
	RowID    int64
}

// ChangeHook receives every row-level change on the store's connection. It
// runs inside the driver callback and must not touch the database.
type ChangeHook func(Change)

// Options configures a Store. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	Tx     TxOptions
	// Now overrides the store clock. Tests use it to make timestamp-based
	// classification deterministic.
	Now func() time.Time
}

// Store is the process-wide store handle. It is explicitly constructed and
// passed to each repository rather than accessed as a global, so tests can
// run one isolated store each.
//
// The handle pins a single underlying connection (MaxOpenConns=1): SQLite
// update hooks are per-connection, and a single writer connection sidesteps
// most lock contention between the UI path and background sync.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	txOpts TxOptions
	now    func() time.Time

	hookMu sync.RWMutex
	hook   ChangeHook
}

// Open opens (creating if needed) the database at path, applies pragmas,
// creates the core tables plus every table in reg, and installs the change
// hook plumbing. reg may be nil for stores that do not capture changes.
func Open(path string, reg *Registry, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	txOpts := opts.Tx.withDefaults()
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	// _txlock=immediate makes BeginTx take the write lock up front, which
	// is what the retry wrapper's contention handling assumes.
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_txlock=immediate", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		logger: logger,
		txOpts: txOpts,
		now:    now,
	}

	if err := s.initialize(reg); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.installUpdateHook(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize applies pragmas and creates core and entity tables.
func (s *Store) initialize(reg *Registry) error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	for _, ddl := range coreSchema {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create core table: %w", err)
		}
	}
	if reg != nil {
		for _, table := range reg.Tables() {
			d, _ := reg.Lookup(table)
			if d.CreateSQL == "" {
				continue
			}
			if _, err := s.db.Exec(d.CreateSQL); err != nil {
				return fmt.Errorf("failed to create table %s: %w", d.Table, err)
			}
		}
	}
	return nil
}

// installUpdateHook registers the SQLite update hook on the store's pinned
// connection. The hook dispatches to whatever ChangeHook is currently set,
// so the listener can attach and detach after open.
func (s *Store) installUpdateHook() error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to obtain connection for update hook: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}
		sc.RegisterUpdateHook(func(op int, dbName, table string, rowid int64) {
			// The hook is invoked under the read lock so that
			// SetChangeHook(nil) acts as a barrier: once it returns,
			// no callback is still in flight.
			s.hookMu.RLock()
			defer s.hookMu.RUnlock()
			if s.hook != nil {
				s.hook(Change{Op: ChangeOp(op), Database: dbName, Table: table, RowID: rowid})
			}
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register update hook: %w", err)
	}
	return nil
}

// SetChangeHook installs (or, with nil, removes) the change hook. Only one
// hook is supported; the change listener owns it.
func (s *Store) SetChangeHook(hook ChangeHook) {
	s.hookMu.Lock()
	s.hook = hook
	s.hookMu.Unlock()
}

// DB exposes the underlying handle for callers that need raw statements.
func (s *Store) DB() *sql.DB { return s.db }

// Logger returns the store's logger.
func (s *Store) Logger() *slog.Logger { return s.logger }

// Now returns the store clock's current time in UTC.
func (s *Store) Now() time.Time { return s.now() }

// NowString returns the store clock formatted the way timestamps are
// persisted (RFC3339 with millisecond precision, UTC).
func (s *Store) NowString() string { return FormatTime(s.now()) }

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.SetChangeHook(nil)
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// FormatTime renders a timestamp the way the store persists them.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ParseTime parses a persisted timestamp. It tolerates plain RFC3339 values
// written by older builds.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02T15:04:05.000Z", s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
