package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestTxOptionsDefaults(t *testing.T) {
	o := TxOptions{}.withDefaults()
	require.Equal(t, 3, o.Attempts)
	require.Equal(t, 400*time.Millisecond, o.Backoff)

	o = TxOptions{Attempts: 5, Backoff: time.Second}.withDefaults()
	require.Equal(t, 5, o.Attempts)
	require.Equal(t, time.Second, o.Backoff)
}

func TestIsLockContention(t *testing.T) {
	require.True(t, isLockContention(sqlite3.Error{Code: sqlite3.ErrBusy}))
	require.True(t, isLockContention(sqlite3.Error{Code: sqlite3.ErrLocked}))
	require.True(t, isLockContention(fmt.Errorf("wrapped: %w", sqlite3.Error{Code: sqlite3.ErrBusy})))
	require.False(t, isLockContention(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	require.False(t, isLockContention(errors.New("database is locked"))) // text alone is not enough
	require.False(t, isLockContention(nil))
}

// contentionStore opens a second raw handle on the same file with the busy
// timeout disabled, so lock contention surfaces immediately instead of
// blocking inside the driver.
func contentionStore(t *testing.T, path string, opts TxOptions) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=0", path))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{
		db:     db,
		logger: slog.Default(),
		txOpts: opts.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func TestWithImmediateTxRetriesThroughTransientLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contention.db")

	holder := contentionStore(t, path, TxOptions{})
	_, err := holder.db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	writer := contentionStore(t, path, TxOptions{Attempts: 20, Backoff: 20 * time.Millisecond})

	// Hold the write lock, then release it while the writer is retrying.
	tx, err := holder.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	released := make(chan struct{})
	go func() {
		time.Sleep(60 * time.Millisecond)
		_ = tx.Commit()
		close(released)
	}()

	err = writer.WithImmediateTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)`, "a", "1")
		return err
	})
	require.NoError(t, err)
	<-released

	var v string
	require.NoError(t, writer.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, "a").Scan(&v))
	require.Equal(t, "1", v)
}

func TestWithImmediateTxExhaustsRetryBudget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contention.db")

	holder := contentionStore(t, path, TxOptions{})
	_, err := holder.db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	writer := contentionStore(t, path, TxOptions{Attempts: 2, Backoff: 5 * time.Millisecond})

	tx, err := holder.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()

	err = writer.WithImmediateTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)`, "a", "1")
		return err
	})
	require.ErrorIs(t, err, ErrTxRetryExhausted)
}

func TestWithImmediateTxDoesNotRetryBusinessErrors(t *testing.T) {
	s := newTestStore(t, Options{Tx: TxOptions{Attempts: 3, Backoff: time.Hour}})

	boom := errors.New("boom")
	start := time.Now()
	err := s.WithImmediateTx(context.Background(), func(tx *sql.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	// A retried business error would have slept through the backoff.
	require.Less(t, time.Since(start), time.Second)
}

func TestWithImmediateTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t, Options{})

	err := s.WithImmediateTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items (_id, name) VALUES (?, ?)`, "item-1", "Tea"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var n int64
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	require.Zero(t, n)
}

func TestWithImmediateTxCommits(t *testing.T) {
	s := newTestStore(t, Options{})

	err := s.WithImmediateTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items (_id, name) VALUES (?, ?)`, "item-1", "Tea")
		return err
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	require.Equal(t, int64(1), n)
}
